package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/api"
	"newsreel/internal/queue"
)

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run queue database diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				report := api.FromDatabaseHealth(store.CheckHealth(cmd.Context()))
				if ctx.jsonMode() {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					printHealthReport(cmd, report)
				}
				if !report.IntegrityCheck || report.Error != "" {
					return errors.New("queue database failed health checks")
				}
				return nil
			})
		},
	}
}

func printHealthReport(cmd *cobra.Command, report api.HealthReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database path: %s\n", report.DBPath)
	fmt.Fprintf(out, "Database exists: %s\n", yesNo(report.DatabaseExists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(report.DatabaseReadable))
	if report.SchemaVersion != "" {
		fmt.Fprintf(out, "Schema version: %s\n", report.SchemaVersion)
	}
	fmt.Fprintf(out, "jobs table present: %s\n", yesNo(report.TableExists))
	if len(report.ColumnsPresent) > 0 {
		fmt.Fprintf(out, "Columns: %s\n", strings.Join(report.ColumnsPresent, ", "))
	}
	if len(report.MissingColumns) > 0 {
		fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(report.MissingColumns, ", "))
	} else {
		fmt.Fprintln(out, "Missing columns: none")
	}
	fmt.Fprintf(out, "Integrity check: %s\n", yesNo(report.IntegrityCheck))
	fmt.Fprintf(out, "Total jobs: %d\n", report.TotalJobs)
	if report.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", report.Error)
	}
}
