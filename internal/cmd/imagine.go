package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"contextimage/internal/extension"
	"contextimage/internal/utils"
)

func newImagineCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "imagine <prompt...>",
		Aliases: append([]string{extension.CommandName}, extension.CommandAliases...),
		Short:   "Generate an image from a free-form prompt",
		Long:    "Generate an image from the prompt alone, without chat history. The result is added to the gallery and printed as a data URL, or written to --out.",
		Example: `cig imagine a lighthouse at dusk, oil painting
cig proimg --out fox.png "a red fox in snow"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				dataURL := app.extension.RunCommand(ctx, prompt)
				if dataURL == "" {
					return errors.New("no image was generated")
				}
				if output == "" {
					fmt.Fprintln(cmd.OutOrStdout(), dataURL)
					return nil
				}
				path, err := writeDataURL(output, dataURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated image saved at: %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "write the image to this file instead of printing a data URL")
	return cmd
}

// writeDataURL decodes dataURL into path, adding the extension that matches
// its MIME type when path has none.
func writeDataURL(path, dataURL string) (string, error) {
	mime, payload := utils.SplitDataURL(dataURL)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if filepath.Ext(path) == "" {
		path += utils.ExtensionForMIME(mime)
	}
	if dir := filepath.Dir(path); !utils.DirectoryExists(dir) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
