package main

import (
	"github.com/spf13/cobra"
)

func newMaintainCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run one maintenance pass unless another node holds the lock.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := e.maint.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
