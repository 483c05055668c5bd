package main

import (
	"testing"

	"slidecast/internal/api"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"pending":      "Pending",
		"synthesizing": "Synthesizing",
		"failed":       "Failed",
		"":             "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildQueueStatusRows(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"pending": 2,
		"failed":  1,
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Failed" || rows[0][1] != "1" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if rows[1][0] != "Pending" || rows[1][1] != "2" {
		t.Fatalf("unexpected second row: %v", rows[1])
	}
	if buildQueueStatusRows(nil) != nil {
		t.Fatal("expected nil rows for empty stats")
	}
}

func TestBuildJobListRowsOrdersNewestFirst(t *testing.T) {
	items := []api.JobItem{
		{ID: 1, Title: "Older", Status: "pending", CreatedAt: "2026-08-01T10:00:00.000Z"},
		{ID: 2, Title: "Newer", Status: "completed", CreatedAt: "2026-08-02T10:00:00.000Z"},
		{ID: 3, SourcePath: "/inbox/untitled deck.pptx", Status: "failed", CreatedAt: "2026-08-01T09:00:00.000Z"},
	}
	rows := buildJobListRows(items)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][1] != "Newer" {
		t.Fatalf("expected newest job first, got %v", rows[0])
	}
	if rows[2][1] != "untitled deck.pptx" {
		t.Fatalf("expected source basename fallback, got %v", rows[2])
	}
	if rows[0][2] != "Completed" {
		t.Fatalf("expected formatted status, got %v", rows[0])
	}
	if rows[0][4] != "2026-08-02 10:00" {
		t.Fatalf("expected formatted created time, got %v", rows[0])
	}
}

func TestBuildJobListRowsTiesBreakOnID(t *testing.T) {
	items := []api.JobItem{
		{ID: 5, Title: "A", Status: "pending", CreatedAt: "2026-08-01T10:00:00.000Z"},
		{ID: 9, Title: "B", Status: "pending", CreatedAt: "2026-08-01T10:00:00.000Z"},
	}
	rows := buildJobListRows(items)
	if rows[0][0] != "9" {
		t.Fatalf("expected higher id first on identical timestamps, got %v", rows[0])
	}
}
