package main

import (
	"fmt"
	"time"

	"pixelary/internal/ports/httpapi"

	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		subject string
		secret  string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token for PUT /v1/config.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := httpapi.IssueOperatorToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&subject, "subject", "operator", "token subject, recorded in config change logs")
	fs.StringVar(&secret, "operator-secret", "", "HS256 secret shared with serve (env: WORDSLATE_OPERATOR_SECRET)")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	return cmd
}
