package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"triage/internal/httpapi"
	"triage/internal/session"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API and Prometheus metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				addr := bind
				if addr == "" {
					addr = ctx.config.Server.Bind
				}
				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if err := sess.Load(runCtx); err != nil {
					return err
				}
				err := httpapi.New(addr, sess, ctx.logger).Run(runCtx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}
