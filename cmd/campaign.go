package cmd

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"redditfrost/internal/config"
	"redditfrost/internal/hunt"

	"github.com/spf13/cobra"
)

var runsLimit int

// campaignCmd groups campaign lifecycle subcommands.
var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Inspect and toggle campaigns",
}

var campaignStartCmd = &cobra.Command{
	Use:   "start <campaign>",
	Short: "Activate a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			c, err := svc.StartCampaign(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var campaignStopCmd = &cobra.Command{
	Use:   "stop <campaign>",
	Short: "Deactivate a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			c, err := svc.StopCampaign(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status <campaign>",
	Short: "Show a campaign with today's remaining posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			st, err := svc.Status(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		})
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured and stored campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, cfg *config.Config) error {
			// seed configured campaigns so they show up before their first cycle
			for _, cc := range cfg.Campaigns {
				if _, err := svc.Campaign(ctx, cc.ID); err != nil {
					return err
				}
			}
			cs, err := svc.Campaigns(ctx)
			if err != nil {
				return err
			}
			sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPERSONA\tMODE\tACTIVE\tCAP\tTODAY")
			for _, c := range cs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\n", c.ID, c.PersonaID, c.HuntMode, c.IsActive, c.DailyPostCap, c.CurrentDailyCount)
			}
			return tw.Flush()
		})
	},
}

var campaignRunsCmd = &cobra.Command{
	Use:   "runs <campaign>",
	Short: "Show recent hunt cycle summaries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			runs, err := svc.Runs(ctx, args[0], runsLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runs)
		})
	},
}

func init() {
	campaignRunsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
	campaignCmd.AddCommand(campaignStartCmd, campaignStopCmd, campaignStatusCmd, campaignListCmd, campaignRunsCmd)
	rootCmd.AddCommand(campaignCmd)
}
