package main

import (
	"github.com/spf13/cobra"

	"newsreel/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Host the newsreel daemon",
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var (
		logLevel    string
		development bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon loop in the foreground",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configValue()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&development, "dev", false, "Use development-friendly log formatting")

	return cmd
}
