package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"contextimage/internal/models"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change generation settings",
	}
	cmd.AddCommand(newSettingsShowCmd(opts), newSettingsSetCmd(opts))
	return cmd
}

func newSettingsShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				doc := app.svcs.Settings.Document()
				delete(doc, "gallery")
				if asJSON {
					out, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
					return nil
				}

				keys := lo.Keys(doc)
				slices.Sort(keys)
				for _, key := range keys {
					value := fmt.Sprint(doc[key])
					if key == "system_instruction" {
						value = summarize(value, 60)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "gallery = %d image(s)\n", len(app.svcs.Gallery.List()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the settings document as JSON")
	return cmd
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting. Keys:

  provider, model, aspect_ratio, image_size, thinking_level,
  use_google_search, use_avatars, include_descriptions,
  use_previous_image, message_depth, system_instruction`,
		Example: `cig settings set aspect_ratio 16:9
cig settings set model gemini-3-pro-image-preview`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.svcs.Settings.Set(ctx, key, value); err != nil {
					return err
				}
				st := app.svcs.Settings.Snapshot()
				fmt.Fprintf(cmd.OutOrStdout(), "%s updated (provider=%s model=%s)\n", key, st.Provider, st.Model)
				if sizes := models.ImageSizes(st.Model); key == "model" && len(sizes) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "image sizes available: %s\n", strings.Join(sizes, ", "))
				}
				return nil
			})
		},
	}
}

func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
