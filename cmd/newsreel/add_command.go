package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/api"
	"newsreel/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		title       string
		url         string
		source      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add --title <headline> --url <link>",
		Short: "Queue a news story for production",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.IngestRequest{
				Title:       strings.TrimSpace(title),
				URL:         strings.TrimSpace(url),
				SourceName:  strings.TrimSpace(source),
				Description: strings.TrimSpace(description),
			}
			if req.Title == "" || req.URL == "" {
				return errors.New("add requires --title and --url")
			}

			if client, ok := ctx.apiClient(cmd.Context()); ok {
				resp, err := client.Ingest(cmd.Context(), req)
				if err != nil {
					return ingestError(err, req.URL)
				}
				return printQueued(cmd, ctx, resp.JobID, req.Title)
			}

			return ctx.withQueueService(func(svc *api.QueueService) error {
				job, err := svc.Ingest(cmd.Context(), req)
				if err != nil {
					return ingestError(err, req.URL)
				}
				return printQueued(cmd, ctx, job.ID, req.Title)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Story headline (required)")
	cmd.Flags().StringVar(&url, "url", "", "Link to the source article (required)")
	cmd.Flags().StringVar(&source, "source", "", "Publication or feed the story came from")
	cmd.Flags().StringVar(&description, "description", "", "Short summary passed to the script writer")

	return cmd
}

func ingestError(err error, url string) error {
	switch {
	case errors.Is(err, queue.ErrDuplicateURL):
		return fmt.Errorf("story already queued: %s", url)
	case errors.Is(err, api.ErrInvalidIngest):
		return errors.New("add requires --title and --url")
	default:
		return err
	}
}

func printQueued(cmd *cobra.Command, ctx *commandContext, jobID, title string) error {
	if ctx.jsonMode() {
		return writeJSON(cmd, api.IngestResponse{JobID: jobID})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %q as job %s\n", title, jobID)
	return nil
}
