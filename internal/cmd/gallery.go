package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"contextimage/internal/models"
	"contextimage/internal/utils"
)

func newGalleryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Browse and manage previously generated images",
	}
	cmd.AddCommand(
		newGalleryListCmd(opts),
		newGalleryShowCmd(opts),
		newGalleryDeleteCmd(opts),
		newGalleryClearCmd(opts),
	)
	return cmd
}

func newGalleryListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List gallery entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				entries := app.svcs.Gallery.List()
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No images generated yet.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "INDEX\tCREATED\tMESSAGE\tPROMPT")
				for i, entry := range entries {
					message := "-"
					if entry.MessageID != nil {
						message = strconv.Itoa(*entry.MessageID)
					}
					created := time.UnixMilli(entry.Timestamp).Format(time.DateTime)
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, created, message, entry.Prompt)
				}
				return w.Flush()
			})
		},
	}
}

func newGalleryShowCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <index>",
		Short: "Show one gallery entry, or write its image with --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				entry, err := app.extension.ViewGalleryImage(index)
				if err != nil {
					return err
				}
				dataURL := models.GenerationResult{ImageData: entry.ImageData, MIMEType: utils.DefaultImageMIME}.DataURL()
				if output != "" {
					path, err := writeDataURL(output, dataURL)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Image written to: %s\n", path)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Prompt: %s\n", entry.Prompt)
				fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", time.UnixMilli(entry.Timestamp).Format(time.DateTime))
				fmt.Fprintln(cmd.OutOrStdout(), dataURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "write the image to this file")
	return cmd
}

func newGalleryDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete one gallery entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.svcs.Gallery.Delete(ctx, index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted gallery entry %d.\n", index)
				return nil
			})
		},
	}
}

func newGalleryClearCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every gallery entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the gallery without --yes")
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.svcs.Gallery.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Gallery cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm clearing the gallery")
	return cmd
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return index, nil
}
