package cmd

import (
	"context"

	"redditfrost/internal/config"
	"redditfrost/internal/hunt"

	"github.com/spf13/cobra"
)

var postLimit int

// postCmd publishes one draft, or every pending draft with write jitter.
var postCmd = &cobra.Command{
	Use:   "post <campaign> [source-id]",
	Short: "Post a drafted reply, or all pending drafts up to the daily cap",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			if len(args) == 2 {
				it, err := svc.Post(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), it)
			}
			rep, err := svc.PostDrafts(ctx, args[0], postLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		})
	},
}

func init() {
	postCmd.Flags().IntVar(&postLimit, "limit", 0, "maximum drafts to post (0 means up to the daily cap)")
	rootCmd.AddCommand(postCmd)
}
