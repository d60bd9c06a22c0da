package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the image models offered per provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				current := app.svcs.Settings.Snapshot()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PROVIDER\tSLOT\tMODEL\tNAME")
				for _, group := range app.svcs.Catalog.ListModelGroups() {
					for _, mdl := range group.Models {
						marker := ""
						if group.ProviderID == current.Provider && mdl.APIName == current.Model {
							marker = " *"
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\n", group.ProviderID, mdl.Slot, mdl.APIName, mdl.DisplayName, marker)
					}
				}
				return w.Flush()
			})
		},
	}
}
