package main

import (
	"errors"
	"fmt"

	"pixelary/internal/ports/httpapi"
	"pixelary/internal/telemetry"

	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		bind           string
		port           int
		operatorSecret string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the slate engine over HTTP.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if port < 1 || port > 65535 {
				return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", port)
			}
			if operatorSecret == "" {
				cmd.PrintErrln("warning: no --operator-secret set, PUT /v1/config is disabled")
			}

			ctx := cmd.Context()
			metrics := telemetry.NewPrometheus()
			e, err := c.open(ctx, cmd.ErrOrStderr(), metrics)
			if err != nil {
				return err
			}
			defer e.Close()

			e.logger.Info("START: wordslate v%s (namespace=%s dictionaries=%v)", releaseVersion, e.settings.Namespace, e.settings.Dictionaries)
			e.maint.Start(ctx, e.settings.MaintenanceInterval)

			srv := httpapi.New(e.svc, httpapi.Options{
				OperatorSecret: operatorSecret,
				Version:        releaseVersion,
				Metrics:        metrics.Handler(),
				Logger:         e.logger,
			})
			if err := srv.ListenAndServe(ctx, bind, port); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&bind, "bind", "b", "0.0.0.0", "address to bind to (env: WORDSLATE_BIND)")
	fs.IntVarP(&port, "port", "p", 8080, "port to listen on (env: WORDSLATE_PORT)")
	fs.StringVar(&operatorSecret, "operator-secret", "", "HS256 secret for operator tokens (env: WORDSLATE_OPERATOR_SECRET)")

	return cmd
}
