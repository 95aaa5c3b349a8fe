package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/api"
)

// trimJobIDs normalizes user-supplied job IDs, rejecting blank arguments.
func trimJobIDs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id := strings.TrimSpace(arg)
		if id == "" {
			return nil, fmt.Errorf("job id %q is not valid", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printQueueRetryResult(cmd *cobra.Command, result api.RetryJobsResult) {
	out := cmd.OutOrStdout()
	for _, job := range result.Jobs {
		switch job.Outcome {
		case api.RetryJobNotFound:
			fmt.Fprintf(out, "Job %s not found\n", job.ID)
		case api.RetryJobNotFailed:
			fmt.Fprintf(out, "Job %s is not retryable (only failed image branches can be retried)\n", job.ID)
		default:
			fmt.Fprintf(out, "Job %s reset for retry\n", job.ID)
		}
	}
}

func printQueueRemoveResult(cmd *cobra.Command, result api.RemoveJobsResult) {
	out := cmd.OutOrStdout()
	for _, job := range result.Jobs {
		if job.Outcome == api.RemoveJobNotFound {
			fmt.Fprintf(out, "Job %s not found\n", job.ID)
			continue
		}
		if job.StageLabel != "" {
			fmt.Fprintf(out, "Job %s removed (%s)\n", job.ID, job.StageLabel)
			continue
		}
		fmt.Fprintf(out, "Job %s removed\n", job.ID)
	}
}
