package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"steam_reviews/internal/render"
)

func newPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page <appid>",
		Short: "Fetch a single raw page of reviews",
		Long:  "Page issues one appreviews request and prints the storefront response. Pass the printed cursor back with --cursor to walk the stream.",
		Args:  oneAppID,
		RunE:  runPage,
	}
	addOptionFlags(cmd)
	return cmd
}

func runPage(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	format := formatOr("json")
	var w render.Writer
	if format != "json" {
		if w, err = render.GetWriter(format); err != nil {
			return usageError{err}
		}
	}
	client, err := newClient(flagBase, flagRPS)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	page, err := client.FetchReviews(ctx, args[0], opts.WithDefaults())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if w == nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	return w.Write(out, render.PageView("Reviews for "+args[0], args[0], page))
}
