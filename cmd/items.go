package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"redditfrost/internal/config"
	"redditfrost/internal/hunt"
	"redditfrost/internal/model"
	"redditfrost/internal/report"

	"github.com/spf13/cobra"
)

var (
	itemsStates []string
	itemMeta    hunt.ItemMeta
	draftsOut   string
	draftsTitle string
)

var itemsCmd = &cobra.Command{
	Use:   "items <persona>",
	Short: "List a persona's processed items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		states := make([]model.State, 0, len(itemsStates))
		for _, s := range itemsStates {
			st, err := model.ParseState(s)
			if err != nil {
				return err
			}
			states = append(states, st)
		}
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			items, err := svc.Items(ctx, args[0], states...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		})
	},
}

// itemCmd groups single-item operator actions.
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Operator actions on one item",
}

var itemSetStateCmd = &cobra.Command{
	Use:   "set-state <persona> <source-id> <done|deleted|skip>",
	Short: "Record an operator disposition for an item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var meta *hunt.ItemMeta
		if itemMeta.Community != "" || itemMeta.URL != "" {
			meta = &itemMeta
		}
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			it, err := svc.SetItemState(ctx, args[0], args[1], args[2], meta)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), it)
		})
	},
}

// draftsCmd renders pending drafts as a markdown review digest.
var draftsCmd = &cobra.Command{
	Use:   "drafts <persona>",
	Short: "Render pending drafts as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			items, err := svc.Items(ctx, args[0], model.StateDrafted)
			if err != nil {
				return err
			}
			md, err := report.Render(report.FromItems(draftsTitle, args[0], items, time.Now()))
			if err != nil {
				return err
			}
			if draftsOut == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(draftsOut), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(draftsOut, []byte(md), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d drafts to %s\n", len(items), draftsOut)
			return nil
		})
	},
}

// analyticsCmd prints per-day totals for a persona.
var analyticsCmd = &cobra.Command{
	Use:   "analytics <persona>",
	Short: "Show leads found, replies posted and tokens spent per day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *hunt.Service, _ *config.Config) error {
			stats, err := svc.Analytics(ctx, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tLEADS\tPOSTED\tTOKENS")
			for _, st := range stats {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", st.Date, st.LeadsFound, st.RepliesPosted, st.TokensSpent)
			}
			return tw.Flush()
		})
	},
}

func init() {
	itemsCmd.Flags().StringSliceVar(&itemsStates, "state", nil, "filter by state (repeatable or comma separated)")

	itemSetStateCmd.Flags().StringVar(&itemMeta.Community, "community", "", "community of an item not seen before")
	itemSetStateCmd.Flags().StringVar(&itemMeta.URL, "url", "", "permalink of an item not seen before")
	itemSetStateCmd.Flags().StringVar(&itemMeta.Title, "title", "", "title of an item not seen before")
	itemSetStateCmd.Flags().StringVar(&itemMeta.Body, "body", "", "body of an item not seen before")
	itemCmd.AddCommand(itemSetStateCmd)

	draftsCmd.Flags().StringVarP(&draftsOut, "out", "o", "", "write markdown to this file instead of stdout")
	draftsCmd.Flags().StringVar(&draftsTitle, "title", "Drafts for review {.CurrentDate}", "digest title")

	rootCmd.AddCommand(itemsCmd, itemCmd, draftsCmd, analyticsCmd)
}
