package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"slidecast/internal/api"
	"slidecast/internal/ipc"
	"slidecast/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage narration jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsPauseCommand(ctx))
	jobsCmd.AddCommand(newJobsResumeCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))
	jobsCmd.AddCommand(newJobsDBHealthCommand(ctx))

	return jobsCmd
}

func (c *commandContext) withJobsAPI(fn func(jobsAPI) error) error {
	return c.withStore(func(client *ipc.Client, store *queue.Store) error {
		if client != nil {
			return fn(&jobsIPCAdapter{client: client})
		}
		return fn(newJobsStoreAdapter(store))
	})
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List narration jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				items, err := jobs.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"items": items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Stage", "Created"},
					buildJobListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				item, err := jobs.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("job %d not found", ids[0])
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, item)
				}
				printJobDetail(cmd, *item)
				return nil
			})
		},
	}
}

func printJobDetail(cmd *cobra.Command, item api.JobItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d: %s\n", item.ID, jobDisplayTitle(item))
	fmt.Fprintf(out, "  Status:   %s\n", formatStatusLabel(item.Status))
	if item.Progress.Stage != "" {
		progress := formatStageLabel(item.Progress.Stage)
		if item.Progress.Percent > 0 {
			progress = fmt.Sprintf("%s (%.0f%%)", progress, item.Progress.Percent)
		}
		if strings.TrimSpace(item.Progress.Message) != "" {
			progress = fmt.Sprintf("%s - %s", progress, item.Progress.Message)
		}
		fmt.Fprintf(out, "  Progress: %s\n", progress)
	}
	fmt.Fprintf(out, "  Source:   %s\n", item.SourcePath)
	if item.SlideCount > 0 {
		fmt.Fprintf(out, "  Slides:   %d\n", item.SlideCount)
	}
	if item.FinalFile != "" {
		fmt.Fprintf(out, "  Output:   %s\n", item.FinalFile)
	}
	if item.CreatedAt != "" {
		fmt.Fprintf(out, "  Created:  %s\n", formatDisplayTime(item.CreatedAt))
	}
	if item.UpdatedAt != "" {
		fmt.Fprintf(out, "  Updated:  %s\n", formatDisplayTime(item.UpdatedAt))
	}
	if strings.TrimSpace(item.ErrorMessage) != "" {
		fmt.Fprintf(out, "  Error:    %s\n", item.ErrorMessage)
	}
	if strings.TrimSpace(item.ReviewReason) != "" {
		fmt.Fprintf(out, "  Review:   %s\n", item.ReviewReason)
	}
}

func newJobsPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <jobID...>",
		Short: "Pause jobs before their next stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				result, err := api.PauseJobsByID(cmd.Context(), jobs, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJobPauseResultJSON(cmd, result)
				}
				printJobPauseResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newJobsResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume [jobID...]",
		Short: "Resume paused jobs (all paused jobs when no IDs given)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := jobs.Resume(cmd.Context(), nil)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"updated": updated})
					}
					fmt.Fprintf(out, "Resumed %d paused jobs\n", updated)
					return nil
				}

				result, err := api.ResumeJobsByID(cmd.Context(), jobs, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJobResumeResultJSON(cmd, result)
				}
				printJobResumeResult(out, result)
				return nil
			})
		},
	}
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <jobID...>",
		Short: "Cancel jobs, stopping in-flight work after the current stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				result, err := api.CancelJobsByID(cmd.Context(), jobs, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJobCancelResultJSON(cmd, result)
				}
				printJobCancelResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed jobs (all failed jobs when no IDs given)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := jobs.Retry(cmd.Context(), nil)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"updated": updated})
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}

				result, err := api.RetryFailedJobsByID(cmd.Context(), jobs, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJobRetryResultJSON(cmd, result)
				}
				printJobRetryResult(out, result)
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				out := cmd.OutOrStdout()
				if clearForce {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}

				var removed int64
				var err error
				switch {
				case clearCompleted:
					removed, err = jobs.ClearCompleted(cmd.Context())
				case clearFailed:
					removed, err = jobs.ClearFailed(cmd.Context())
				default:
					removed, err = jobs.ClearAll(cmd.Context())
				}
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(out, "Cleared %d %s\n", removed, bulkClearLabel(clearCompleted, clearFailed))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				health, err := jobs.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nPaused: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Paused,
					health.Failed,
					health.Completed,
				)
				return nil
			})
		},
	}
}

func newJobsDBHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "db-health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobsAPI(func(jobs jobsAPI) error {
				resp, err := jobs.DatabaseHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", resp.SchemaVersion)
				fmt.Fprintf(out, "jobs table present: %s\n", yesNo(resp.TableExists))
				if len(resp.ColumnsPresent) > 0 {
					cols := append([]string(nil), resp.ColumnsPresent...)
					sort.Strings(cols)
					fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
				}
				if len(resp.MissingColumns) > 0 {
					missing := append([]string(nil), resp.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs: %d\n", resp.TotalJobs)
				if resp.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", resp.Error)
				}
				return nil
			})
		},
	}
}
