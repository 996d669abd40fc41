package main

import (
	"fmt"
	"text/tabwriter"

	"pixelary/internal/app"

	"github.com/spf13/cobra"
)

func newStatsCmd(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the top words by score and by uncertainty.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := e.svc.GetWordStats(cmd.Context(), app.StatsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pool: %d words, config v%d\n\n", resp.PoolSize, resp.ConfigVersion)
			printStatTable(cmd, "BY SCORE", resp.ByScore)
			fmt.Fprintln(out)
			printStatTable(cmd, "BY UNCERTAINTY", resp.ByUncertainty)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&limit, "limit", "n", app.DefaultStatsLimit, "rows per list")
	fs.BoolVar(&asJSON, "json", false, "print JSON instead of tables")

	return cmd
}

func printStatTable(cmd *cobra.Command, title string, rows []app.WordStat) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, title)
	fmt.Fprintln(tw, "WORD\tDICTIONARY\tSCORE\tUNCERTAINTY\tPICK\tPOST\tSERVED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%d\n", r.Word, r.Dictionary, r.Score, r.Uncertainty, r.PickRate, r.PostRate, r.Served)
	}
	_ = tw.Flush()
}
