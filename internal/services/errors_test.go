package services_test

import (
	"errors"
	"testing"

	"slidecast/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "extract", "parse deck", "no slides found", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if services.IsTransient(err) {
		t.Fatalf("validation error classified transient: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "synthesize", "request", "engine unavailable", errors.New("boom"))
	if !services.IsTransient(err) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrValidation, true},
		{services.ErrConfiguration, true},
		{services.ErrNotFound, true},
		{services.ErrTransient, false},
		{services.ErrTimeout, false},
		{services.ErrExternalTool, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "msg", nil)
		if got := services.IsPermanent(err); got != tc.want {
			t.Errorf("IsPermanent(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}

func TestDetailsSeparatesStageContextFromMessage(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "synthesize", "edge request", "deadline exceeded", nil)
	details := services.Details(err)
	if details.Marker != services.ErrTimeout {
		t.Fatalf("marker = %v, want timeout", details.Marker)
	}
	if details.Stage != "synthesize" || details.Operation != "edge request" {
		t.Fatalf("stage/operation = %q/%q", details.Stage, details.Operation)
	}
	if details.Message != "deadline exceeded" {
		t.Fatalf("message = %q", details.Message)
	}
	if err.Error() != "timeout: synthesize: edge request: deadline exceeded" {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestDetailsFallsBackToCauseMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "synthesize", "edge request", "", cause)
	details := services.Details(err)
	if details.Message != "connection refused" {
		t.Fatalf("message = %q", details.Message)
	}
	if details.Cause != cause {
		t.Fatalf("cause = %v", details.Cause)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause should satisfy errors.Is")
	}
}

func TestDetailsNilError(t *testing.T) {
	if details := services.Details(nil); details.Marker != nil || details.Message != "" {
		t.Fatalf("unexpected details for nil error: %+v", details)
	}
}
