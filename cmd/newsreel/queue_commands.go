package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/api"
	"newsreel/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(
		newQueueStatusCommand(ctx),
		newQueueListCommand(ctx),
		newQueueShowCommand(ctx),
		newQueueRetryCommand(ctx),
		newQueueRemoveCommand(ctx),
		newQueueClearCommand(ctx),
		newQueueHealthCommand(ctx),
	)

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueService(func(svc *api.QueueService) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, stats)
				}
				if stats.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Stage", "Count"},
					buildQueueStatusRows(stats),
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		stageFlags []string
		imageFlag  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := parseScriptStages(stageFlags)
			if err != nil {
				return err
			}
			return ctx.withQueueService(func(svc *api.QueueService) error {
				jobs, err := listJobs(cmd, svc, stages, imageFlag)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Stage", "Created"},
					buildQueueListRows(jobs),
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&stageFlags, "stage", "s", nil, "Filter by script stage (repeatable)")
	cmd.Flags().StringVar(&imageFlag, "image", "", "Filter by image stage")

	return cmd
}

func listJobs(cmd *cobra.Command, svc *api.QueueService, stages []queue.ScriptStage, imageFlag string) ([]api.Job, error) {
	imageFlag = strings.TrimSpace(imageFlag)
	if imageFlag == "" {
		return svc.List(cmd.Context(), stages...)
	}

	imageStage, ok := queue.ParseImageStage(imageFlag)
	if !ok {
		return nil, fmt.Errorf("unknown image stage %q", imageFlag)
	}
	jobs, err := svc.ListByImageStage(cmd.Context(), imageStage)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return jobs, nil
	}

	keep := make(map[string]struct{}, len(stages))
	for _, stage := range stages {
		keep[string(stage)] = struct{}{}
	}
	kept := jobs[:0]
	for _, job := range jobs {
		if _, ok := keep[job.ScriptStage]; ok {
			kept = append(kept, job)
		}
	}
	return kept, nil
}

func parseScriptStages(values []string) ([]queue.ScriptStage, error) {
	stages := make([]queue.ScriptStage, 0, len(values))
	for _, value := range values {
		stage, ok := queue.ParseScriptStage(value)
		if !ok {
			return nil, fmt.Errorf("unknown script stage %q", value)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show full detail for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withQueueService(func(svc *api.QueueService) error {
				job, err := svc.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", id)
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.JobResponse{Job: *job})
				}
				printJobDetail(cmd, job)
				return nil
			})
		},
	}
}

func printJobDetail(cmd *cobra.Command, job *api.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID: %s\n", job.ID)
	fmt.Fprintf(out, "Title: %s\n", job.Title)
	fmt.Fprintf(out, "URL: %s\n", job.NewsURL)
	if job.SourceName != "" {
		fmt.Fprintf(out, "Source: %s\n", job.SourceName)
	}
	if job.PublishedDate != "" {
		fmt.Fprintf(out, "Published: %s\n", job.PublishedDate)
	}
	fmt.Fprintf(out, "Stage: %s (script %s, images %s)\n", formatStageLabel(job.StageLabel), job.ScriptStage, job.ImageStage)
	fmt.Fprintf(out, "Claimed: %s\n", yesNo(job.Claimed))
	if job.ClaimedBy != "" {
		fmt.Fprintf(out, "Claimed by: %s\n", job.ClaimedBy)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Last error: %s\n", job.ErrorMessage)
	}
	if job.AudioPath != "" {
		fmt.Fprintf(out, "Audio: %s\n", job.AudioPath)
	}
	if job.CaptionPath != "" {
		fmt.Fprintf(out, "Captions: %s\n", job.CaptionPath)
	}
	for i, path := range job.ImagePaths {
		fmt.Fprintf(out, "Image %d: %s\n", i+1, path)
	}
	if job.VideoPath != "" {
		fmt.Fprintf(out, "Video: %s\n", job.VideoPath)
	}
	fmt.Fprintf(out, "Created: %s\n", formatDisplayTime(job.CreatedAt))
	fmt.Fprintf(out, "Updated: %s\n", formatDisplayTime(job.UpdatedAt))

	if len(job.VisualPrompts) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Visual prompts:")
		for i, prompt := range job.VisualPrompts {
			fmt.Fprintf(out, "  %d. %s\n", i+1, prompt)
		}
	}
	if job.Narration != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Narration:")
		fmt.Fprintln(out, job.Narration)
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Reset failed image branches to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueService(func(svc *api.QueueService) error {
				if len(args) == 0 {
					updated, err := svc.Retry(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.jsonMode() {
						return writeJSON(cmd, api.RetryResponse{Updated: updated})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", updated)
					return nil
				}

				ids, err := trimJobIDs(args)
				if err != nil {
					return err
				}
				result, err := api.RetryImageBranchesByID(cmd.Context(), svc, ids)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				printQueueRetryResult(cmd, result)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>...",
		Short: "Delete jobs from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := trimJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueueService(func(svc *api.QueueService) error {
				result, err := api.RemoveJobsByID(cmd.Context(), svc, ids)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				printQueueRemoveResult(cmd, result)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed jobs (or everything with --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueService(func(svc *api.QueueService) error {
				removed, err := svc.Clear(cmd.Context(), !all)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, map[string]int64{"removed": removed})
				}
				if all {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", removed)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed jobs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every job, not just completed ones")

	return cmd
}
