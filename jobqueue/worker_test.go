package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/leadgrid/leadgrid/credits"
	"github.com/leadgrid/leadgrid/jobrunner"
	"github.com/leadgrid/leadgrid/progressbus"
)

func TestWorkerProcessJobTransitionsToCompleted(t *testing.T) {
	queue := NewInMemoryQueue(1)
	bus := progressbus.NewInMemoryBus()
	job := newTestJob("job-1")
	ctx := context.Background()
	if err := queue.Enqueue(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	worker := &Worker{
		Queue: queue,
		Bus:   bus,
		Run: func(ctx context.Context, p jobrunner.Params, progress jobrunner.ProgressFunc, cancelled jobrunner.CancelFunc) jobrunner.Result {
			progress(jobrunner.Progress{Percentage: 50, RecordsCollected: 1})
			return jobrunner.Result{
				Status:  jobrunner.StatusCompleted,
				Records: []jobrunner.Record{{}},
				Progress: jobrunner.Progress{
					Percentage:       100,
					RecordsCollected: 1,
				},
			}
		},
	}

	dequeued, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	worker.processJob(ctx, dequeued)

	got, err := queue.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != jobrunner.StatusCompleted {
		t.Errorf("expected StatusCompleted, got %q", got.Status)
	}
	if len(got.Result) != 1 {
		t.Errorf("expected one result record, got %d", len(got.Result))
	}
	if got.CompletedAt.IsZero() {
		t.Errorf("expected CompletedAt to be set")
	}

	events := bus.Events()
	if len(events) < 3 {
		t.Fatalf("expected at least 3 events (active, progress, completed), got %d", len(events))
	}
	if events[0].Type != progressbus.UpdateJobUpdate {
		t.Errorf("expected first event to be job_update, got %q", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != progressbus.UpdateJobUpdate {
		t.Errorf("expected final event to be job_update, got %q", last.Type)
	}
}

func TestWorkerProcessJobEmitsDeletedOnCancellation(t *testing.T) {
	queue := NewInMemoryQueue(1)
	bus := progressbus.NewInMemoryBus()
	job := newTestJob("job-1")
	ctx := context.Background()
	if err := queue.Enqueue(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dequeued, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	worker := &Worker{
		Queue: queue,
		Bus:   bus,
		Run: func(ctx context.Context, p jobrunner.Params, progress jobrunner.ProgressFunc, cancelled jobrunner.CancelFunc) jobrunner.Result {
			return jobrunner.Result{Status: jobrunner.StatusCancelled}
		},
	}
	worker.processJob(ctx, dequeued)

	events := bus.Events()
	last := events[len(events)-1]
	if last.Type != progressbus.UpdateJobDeleted {
		t.Errorf("expected final event to be job_deleted, got %q", last.Type)
	}
}

func TestWorkerProcessJobFailsFastOnInsufficientCredits(t *testing.T) {
	queue := NewInMemoryQueue(1)
	bus := progressbus.NewInMemoryBus()
	job := newTestJob("job-1")
	job.Params.MaxRecords = 100
	ctx := context.Background()
	if err := queue.Enqueue(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dequeued, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runCalled := false
	worker := &Worker{
		Queue:   queue,
		Bus:     bus,
		Credits: credits.NewStubService(map[string]int{"user-1": 1}),
		Run: func(ctx context.Context, p jobrunner.Params, progress jobrunner.ProgressFunc, cancelled jobrunner.CancelFunc) jobrunner.Result {
			runCalled = true
			return jobrunner.Result{Status: jobrunner.StatusCompleted}
		},
	}
	worker.processJob(ctx, dequeued)

	if runCalled {
		t.Errorf("expected RunnerFunc not to be invoked when credits are insufficient")
	}
	got, err := queue.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != jobrunner.StatusFailed {
		t.Errorf("expected StatusFailed, got %q", got.Status)
	}
	if got.Error == nil || got.Error.Message == "" {
		t.Errorf("expected an error payload explaining the credit failure")
	}
}

func TestWorkerProcessJobDeductsCreditsOnCompletion(t *testing.T) {
	queue := NewInMemoryQueue(1)
	job := newTestJob("job-1")
	job.Params.MaxRecords = 10
	ctx := context.Background()
	if err := queue.Enqueue(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dequeued, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stub := credits.NewStubService(map[string]int{"user-1": 10})
	worker := &Worker{
		Queue:   queue,
		Credits: stub,
		Run: func(ctx context.Context, p jobrunner.Params, progress jobrunner.ProgressFunc, cancelled jobrunner.CancelFunc) jobrunner.Result {
			return jobrunner.Result{Status: jobrunner.StatusCompleted, Records: []jobrunner.Record{{}, {}, {}}}
		},
	}
	worker.processJob(ctx, dequeued)

	if got := stub.Balance("user-1"); got != 7 {
		t.Errorf("expected balance 7 after deducting 3 records, got %d", got)
	}
}

func TestWorkerStartStopsOnContextCancellation(t *testing.T) {
	queue := NewInMemoryQueue(1)
	worker := &Worker{
		Queue:       queue,
		Concurrency: 2,
		Run: func(ctx context.Context, p jobrunner.Params, progress jobrunner.ProgressFunc, cancelled jobrunner.CancelFunc) jobrunner.Result {
			return jobrunner.Result{Status: jobrunner.StatusCompleted}
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected Start to return nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected Start to return after context cancellation")
	}
}
