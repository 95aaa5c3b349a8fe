package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/stageexec"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "run <lane>",
		Short: "Run one pipeline lane pass outside the daemon",
		Long: "Run executes a single pass of one pipeline lane (" + strings.Join(stageexec.Lanes(), ", ") +
			") with the same claim and release semantics the daemon applies.\n" +
			"Useful for debugging a stage or pushing a specific job forward.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: stageexec.Lanes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configValue()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:            cfg.Logging.Level,
				Format:           "console",
				OutputPaths:      []string{"stdout"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return ctx.withStore(func(store *queue.Store) error {
				runner := stageexec.NewRunner(cfg, store, logger)
				result, err := runner.Run(cmd.Context(), args[0], jobID)
				if err != nil {
					return err
				}
				printRunResult(cmd, args[0], result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Process this job instead of the next eligible one")

	return cmd
}

func printRunResult(cmd *cobra.Command, lane string, result stageexec.Result) {
	out := cmd.OutOrStdout()
	if lane == stageexec.LaneDiscover {
		if len(result.Queued) == 0 {
			fmt.Fprintln(out, "No new stories discovered")
			return
		}
		fmt.Fprintf(out, "Queued %d stories\n", len(result.Queued))
		for _, job := range result.Queued {
			fmt.Fprintf(out, "  %s  %s\n", job.ID, job.Title)
		}
		return
	}

	if result.Job == nil {
		fmt.Fprintf(out, "No jobs ready for the %s lane\n", lane)
		return
	}
	fmt.Fprintf(out, "Job %s finished the %s lane (%s)\n", result.Job.ID, lane, result.Job.StageLabel())
}
