package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slidecast/internal/api"
	"slidecast/internal/queue"
)

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJobRetryResultJSON(cmd *cobra.Command, result api.RetryJobsResult) error {
	type jsonItem struct {
		ID      int64  `json:"id"`
		Outcome string `json:"outcome"`
	}
	items := make([]jsonItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, jsonItem{ID: item.ID, Outcome: string(item.Outcome)})
	}
	return writeJSON(cmd, map[string]any{"items": items})
}

func printJobRetryResult(out io.Writer, result api.RetryJobsResult) {
	for _, item := range result.Items {
		switch item.Outcome {
		case api.RetryJobNotFound:
			fmt.Fprintf(out, "Job %d not found\n", item.ID)
		case api.RetryJobNotFailed:
			fmt.Fprintf(out, "Job %d is not in a retryable state (only failed jobs can be retried)\n", item.ID)
		case api.RetryJobUpdated:
			fmt.Fprintf(out, "Job %d reset for retry\n", item.ID)
		}
	}
}

func writeJobPauseResultJSON(cmd *cobra.Command, result api.PauseJobsResult) error {
	type jsonItem struct {
		ID          int64  `json:"id"`
		Outcome     string `json:"outcome"`
		PriorStatus string `json:"prior_status,omitempty"`
	}
	items := make([]jsonItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, jsonItem{ID: item.ID, Outcome: string(item.Outcome), PriorStatus: item.PriorStatus})
	}
	return writeJSON(cmd, map[string]any{"items": items})
}

func printJobPauseResult(out io.Writer, result api.PauseJobsResult) {
	for _, item := range result.Items {
		switch item.Outcome {
		case api.PauseJobNotFound:
			fmt.Fprintf(out, "Job %d not found\n", item.ID)
		case api.PauseJobAlreadyPaused:
			fmt.Fprintf(out, "Job %d is already paused\n", item.ID)
		case api.PauseJobTerminal:
			fmt.Fprintf(out, "Job %d is already finished and cannot be paused\n", item.ID)
		case api.PauseJobUpdated:
			message := fmt.Sprintf("Job %d pause requested", item.ID)
			if parsed, ok := parseProcessingStatus(item.PriorStatus); ok {
				message = fmt.Sprintf("Job %d pause requested (currently %s; will pause after current stage)", item.ID, parsed)
			}
			fmt.Fprintln(out, message)
		}
	}
}

func writeJobResumeResultJSON(cmd *cobra.Command, result api.ResumeJobsResult) error {
	type jsonItem struct {
		ID      int64  `json:"id"`
		Outcome string `json:"outcome"`
	}
	items := make([]jsonItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, jsonItem{ID: item.ID, Outcome: string(item.Outcome)})
	}
	return writeJSON(cmd, map[string]any{"items": items})
}

func printJobResumeResult(out io.Writer, result api.ResumeJobsResult) {
	for _, item := range result.Items {
		switch item.Outcome {
		case api.ResumeJobNotFound:
			fmt.Fprintf(out, "Job %d not found\n", item.ID)
		case api.ResumeJobNotPaused:
			fmt.Fprintf(out, "Job %d is not paused\n", item.ID)
		case api.ResumeJobUpdated:
			fmt.Fprintf(out, "Job %d resumed\n", item.ID)
		}
	}
}

func writeJobCancelResultJSON(cmd *cobra.Command, result api.CancelJobsResult) error {
	type jsonItem struct {
		ID          int64  `json:"id"`
		Outcome     string `json:"outcome"`
		PriorStatus string `json:"prior_status,omitempty"`
	}
	items := make([]jsonItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, jsonItem{ID: item.ID, Outcome: string(item.Outcome), PriorStatus: item.PriorStatus})
	}
	return writeJSON(cmd, map[string]any{"items": items})
}

func printJobCancelResult(out io.Writer, result api.CancelJobsResult) {
	for _, item := range result.Items {
		switch item.Outcome {
		case api.CancelJobNotFound:
			fmt.Fprintf(out, "Job %d not found\n", item.ID)
		case api.CancelJobAlreadyCompleted:
			fmt.Fprintf(out, "Job %d is already completed\n", item.ID)
		case api.CancelJobAlreadyFailed:
			fmt.Fprintf(out, "Job %d is already failed\n", item.ID)
		case api.CancelJobUpdated:
			message := fmt.Sprintf("Job %d cancel requested", item.ID)
			if parsed, ok := parseProcessingStatus(item.PriorStatus); ok {
				message = fmt.Sprintf("Job %d cancel requested (currently %s; will halt after current stage)", item.ID, parsed)
			}
			fmt.Fprintln(out, message)
		}
	}
}

func parseProcessingStatus(status string) (string, bool) {
	parsed, ok := queue.ParseStatus(status)
	if !ok || !queue.IsProcessingStatus(parsed) {
		return "", false
	}
	return formatStatusLabel(status), true
}

func bulkClearLabel(completed, failed bool) string {
	switch {
	case completed:
		return "completed jobs"
	case failed:
		return "failed jobs"
	default:
		return "queue jobs"
	}
}
