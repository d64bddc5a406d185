package cmd

import (
	"context"

	"redditfrost/internal/config"
	"redditfrost/internal/hunt"

	"github.com/spf13/cobra"
)

var huntPost bool

// huntCmd runs one hunt cycle immediately and prints its summary.
var huntCmd = &cobra.Command{
	Use:   "hunt <campaign>",
	Short: "Run one hunt cycle for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, cfg *config.Config) error {
			cctx, cancel := context.WithTimeout(ctx, config.Duration(cfg.Hunt.CycleTimeout))
			defer cancel()
			sum, err := svc.TriggerCycle(cctx, args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), sum); err != nil {
				return err
			}
			if !huntPost {
				return nil
			}
			rep, err := svc.PostDrafts(ctx, args[0], 0)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		})
	},
}

func init() {
	huntCmd.Flags().BoolVar(&huntPost, "post", false, "post pending drafts after the cycle")
	rootCmd.AddCommand(huntCmd)
}
