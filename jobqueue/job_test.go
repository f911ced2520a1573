package jobqueue

import (
	"testing"

	"github.com/leadgrid/leadgrid/jobrunner"
)

func TestNewJobStartsWaiting(t *testing.T) {
	job := NewJob("user-1", jobrunner.Params{Keyword: "coffee", Country: "US", MaxRecords: 10})
	if job.Status != jobrunner.StatusWaiting {
		t.Errorf("expected StatusWaiting, got %q", job.Status)
	}
	if job.ID == "" {
		t.Errorf("expected a generated job ID")
	}
}

func TestJobValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		job  *Job
	}{
		{"missing user", NewJob("", jobrunner.Params{Keyword: "x", Country: "US", MaxRecords: 1})},
		{"missing keyword", NewJob("u", jobrunner.Params{Country: "US", MaxRecords: 1})},
		{"missing country", NewJob("u", jobrunner.Params{Keyword: "x", MaxRecords: 1})},
		{"missing max records", NewJob("u", jobrunner.Params{Keyword: "x", Country: "US"})},
	}
	for _, c := range cases {
		if err := c.job.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestJobValidateAcceptsCompleteParams(t *testing.T) {
	job := NewJob("u", jobrunner.Params{Keyword: "coffee", Country: "US", MaxRecords: 10})
	if err := job.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestJobCancelFlagRoundTrips(t *testing.T) {
	job := NewJob("u", jobrunner.Params{Keyword: "x", Country: "US", MaxRecords: 1})
	if job.Cancelled() {
		t.Fatalf("expected a fresh job to not be cancelled")
	}
	job.RequestCancel()
	if !job.Cancelled() {
		t.Fatalf("expected RequestCancel to flip Cancelled()")
	}
}
