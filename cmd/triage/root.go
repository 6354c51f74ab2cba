package main

import (
	"github.com/spf13/cobra"

	"triage/internal/session"
)

func newRootCommand(opts ...session.Option) *cobra.Command {
	var configFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag, opts)

	rootCmd := &cobra.Command{
		Use:           "triage",
		Short:         "Review media files one at a time and quarantine the rejects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print machine-readable JSON")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newNextCommand(ctx))
	rootCmd.AddCommand(newPendingCommand(ctx))
	rootCmd.AddCommand(newKeepCommand(ctx))
	rootCmd.AddCommand(newRejectCommand(ctx))
	rootCmd.AddCommand(newSkipCommand(ctx))
	rootCmd.AddCommand(newReviewCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newRejectedCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
