package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"houseprice/app"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the model artifact if it is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Model.DownloadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Model.DownloadTimeout)
			defer cancel()
		}
		if err := app.New(cfg, log).Fetcher().Ensure(ctx, cfg.Model.Path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "model ready at %s\n", cfg.Model.Path)
		return nil
	},
}
