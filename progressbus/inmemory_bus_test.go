package progressbus

import (
	"context"
	"testing"
)

func TestInMemoryBusRecordsEventsInOrder(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	if err := bus.EmitJobUpdate(ctx, "user-1", UpdateJobUpdate, JobUpdatePayload{JobID: "job-1", Status: "active"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.EmitJobUpdate(ctx, "user-1", UpdateJobProgress, JobUpdatePayload{JobID: "job-1", Status: "active"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := bus.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != UpdateJobUpdate || events[1].Type != UpdateJobProgress {
		t.Fatalf("unexpected event order: %+v", events)
	}
	for _, e := range events {
		if e.UserID != "user-1" {
			t.Errorf("expected user-1, got %q", e.UserID)
		}
	}
}
