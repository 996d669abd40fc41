package main

import (
	"encoding/json"
	"io"

	"pixelary/internal/app"

	"github.com/spf13/cobra"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the bandit parameters.",
	}
	cmd.AddCommand(newConfigShowCmd(c), newConfigSetCmd(c))
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored bandit parameters.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			cfg, err := e.svc.GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}
}

func newConfigSetCmd(c *cli) *cobra.Command {
	var rate, clamp, wPick, wPost float64

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update bandit parameters; out-of-range values are clamped.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch app.ConfigPatch
			fs := cmd.Flags()
			if fs.Changed("exploration-rate") {
				patch.ExplorationRate = &rate
			}
			if fs.Changed("z-score-clamp") {
				patch.ZScoreClamp = &clamp
			}
			if fs.Changed("weight-pick-rate") {
				patch.WeightPickRate = &wPick
			}
			if fs.Changed("weight-post-rate") {
				patch.WeightPostRate = &wPost
			}
			if patch == (app.ConfigPatch{}) {
				return cmd.Usage()
			}

			e, err := c.open(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			cfg, err := e.svc.UpdateConfig(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&rate, "exploration-rate", 0, "probability each slot explores, 0-1")
	fs.Float64Var(&clamp, "z-score-clamp", 0, "bound applied to pick and post z-scores")
	fs.Float64Var(&wPick, "weight-pick-rate", 0, "weight of the pick-rate z-score")
	fs.Float64Var(&wPost, "weight-post-rate", 0, "weight of the post-rate z-score")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
