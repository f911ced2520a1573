package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadgrid/leadgrid/jobrunner"
)

func newTestJob(id string) *Job {
	job := NewJob("user-1", jobrunner.Params{Keyword: "coffee", Country: "US", MaxRecords: 10})
	job.ID = id
	return job
}

func TestInMemoryQueueEnqueueDequeueFIFO(t *testing.T) {
	q := NewInMemoryQueue(8)
	ctx := context.Background()

	first := newTestJob("job-1")
	second := newTestJob("job-2")
	if err := q.Enqueue(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Enqueue(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "job-1" {
		t.Errorf("expected job-1 first, got %s", got.ID)
	}

	got, err = q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "job-2" {
		t.Errorf("expected job-2 second, got %s", got.ID)
	}
}

func TestInMemoryQueueDequeueRespectsContextCancellation(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestInMemoryQueueGetMissingReturnsErrNotFound(t *testing.T) {
	q := NewInMemoryQueue(1)
	if _, err := q.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryQueueUpdateMissingReturnsErrNotFound(t *testing.T) {
	q := NewInMemoryQueue(1)
	if err := q.Update(context.Background(), newTestJob("ghost")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryQueueUpdatePersistsChanges(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx := context.Background()
	job := newTestJob("job-1")
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job.Status = jobrunner.StatusActive
	if err := q.Update(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := q.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != jobrunner.StatusActive {
		t.Errorf("expected status to persist, got %q", got.Status)
	}
}

func TestInMemoryQueueDeleteRemovesJob(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx := context.Background()
	job := newTestJob("job-1")
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := q.Get(ctx, "job-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := q.Delete(ctx, "job-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestInMemoryQueueListByUserFiltersOwner(t *testing.T) {
	q := NewInMemoryQueue(4)
	ctx := context.Background()

	mine := NewJob("user-1", jobrunner.Params{Keyword: "coffee", Country: "US", MaxRecords: 1})
	mine.ID = "job-mine"
	other := NewJob("user-2", jobrunner.Params{Keyword: "tea", Country: "US", MaxRecords: 1})
	other.ID = "job-other"

	if err := q.Enqueue(ctx, mine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Enqueue(ctx, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs, err := q.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-mine" {
		t.Fatalf("expected only job-mine, got %+v", jobs)
	}
}

func TestInMemoryQueueDepthReflectsPendingCount(t *testing.T) {
	q := NewInMemoryQueue(4)
	ctx := context.Background()

	if depth, err := q.Depth(ctx); err != nil || depth != 0 {
		t.Fatalf("expected depth 0, got %d (err %v)", depth, err)
	}

	if err := q.Enqueue(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depth, err := q.Depth(ctx); err != nil || depth != 1 {
		t.Fatalf("expected depth 1, got %d (err %v)", depth, err)
	}

	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depth, err := q.Depth(ctx); err != nil || depth != 0 {
		t.Fatalf("expected depth 0 after dequeue, got %d (err %v)", depth, err)
	}
}
