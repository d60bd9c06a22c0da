package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		messageID int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Illustrate the chat",
		Long: `Illustrate the latest chat message, or the message given with --message.

With --message the image is saved under the images directory, attached to
the message and the chat file is rewritten.`,
		Example: `cig generate --chat chats/Bob/2025-01-01.jsonl
cig generate --message 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if !cmd.Flags().Changed("message") {
					result, err := app.extension.GenerateLatest(ctx)
					if err != nil {
						return err
					}
					if output == "" {
						fmt.Fprintln(cmd.OutOrStdout(), result.DataURL())
						return nil
					}
					path, err := writeDataURL(output, result.DataURL())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Generated image saved at: %s\n", path)
					return nil
				}

				_, url, err := app.extension.GenerateForMessage(ctx, messageID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Image attached to message %d: %s\n", messageID, url)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&messageID, "message", "m", 0, "index of the chat message to illustrate")
	cmd.Flags().StringVarP(&output, "out", "o", "", "write the latest-message image to this file")
	cmd.MarkFlagsMutuallyExclusive("message", "out")
	return cmd
}
