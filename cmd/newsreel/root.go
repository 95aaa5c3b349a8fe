package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		jsonFlag   bool
	)

	ctx := newCommandContext(&configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "newsreel",
		Short:         "Turn short news stories into vertical videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of human-readable output")

	rootCmd.AddCommand(
		newStatusCommand(ctx),
		newAddCommand(ctx),
		newQueueCommand(ctx),
		newRunCommand(ctx),
		newDaemonCommand(ctx),
		newNotifyTestCommand(ctx),
		newConfigCommand(ctx),
	)

	return rootCmd
}
