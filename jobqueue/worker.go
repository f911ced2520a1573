package jobqueue

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leadgrid/leadgrid/credits"
	"github.com/leadgrid/leadgrid/jobrunner"
	"github.com/leadgrid/leadgrid/progressbus"
)

// RunnerFunc executes one job end to end; normally jobrunner.Runner.Run.
type RunnerFunc func(ctx context.Context, p jobrunner.Params, progress jobrunner.ProgressFunc, cancelled jobrunner.CancelFunc) jobrunner.Result

// Worker dequeues jobs from a Queue with bounded concurrency and drives each
// through a RunnerFunc, persisting status/progress/result and publishing to
// a progress bus. Grounded on the teacher's runner/webrunner.webrunner: its
// Run launches its poll loop and HTTP server concurrently via
// errgroup.WithContext, and scrapeJob performs the
// StatusPending→StatusWorking→StatusOK/StatusFailed transition around a
// single scrape invocation — this Worker generalizes that one-job-at-a-time
// loop into N concurrently-running dequeue loops.
type Worker struct {
	Queue        Queue
	Bus          progressbus.Bus
	Credits      credits.Service
	Run          RunnerFunc
	Concurrency  int // JOB_QUEUE_CONCURRENCY
	PollInterval time.Duration
}

// Start blocks, running Concurrency dequeue loops until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		group.Go(func() error { return w.loop(gctx) })
	}
	return group.Wait()
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		job, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			time.Sleep(time.Second)
			continue
		}

		w.processJob(ctx, job)
	}
}

// processJob performs the active→{completed|failed|cancelled} transition
// exactly once (spec.md §4.8), checking and deducting credits around the
// job's persistent side-effects (spec.md §6's checkCredits/deductCredits
// outbound RPC) and persisting every progress update.
func (w *Worker) processJob(ctx context.Context, job *Job) {
	if w.Credits != nil {
		ok, err := w.Credits.CheckCredits(ctx, job.UserID, job.Params.MaxRecords)
		if err != nil || !ok {
			job.Status = jobrunner.StatusFailed
			job.Error = &jobrunner.JobError{Message: "insufficient credits", Timestamp: time.Now()}
			job.CompletedAt = time.Now()
			_ = w.Queue.Update(ctx, job)
			w.emit(ctx, job, progressbus.UpdateJobUpdate)
			return
		}
	}

	job.Status = jobrunner.StatusActive
	job.StartedAt = time.Now()
	_ = w.Queue.Update(ctx, job)
	w.emit(ctx, job, progressbus.UpdateJobUpdate)

	progressFn := func(p jobrunner.Progress) {
		job.Progress = p
		_ = w.Queue.Update(ctx, job)
		w.emit(ctx, job, progressbus.UpdateJobProgress)
	}
	cancelFn := func() bool {
		latest, err := w.Queue.Get(ctx, job.ID)
		if err != nil {
			return job.Cancelled()
		}
		return latest.Cancelled() || job.Cancelled()
	}

	result := w.Run(ctx, job.Params, progressFn, cancelFn)

	job.Status = result.Status
	job.Progress = result.Progress
	job.Result = result.Records
	job.Error = result.Err
	job.CompletedAt = time.Now()

	if w.Credits != nil && job.Status == jobrunner.StatusCompleted {
		_ = w.Credits.DeductCredits(ctx, job.UserID, len(result.Records))
	}

	_ = w.Queue.Update(ctx, job)

	updateType := progressbus.UpdateJobUpdate
	if job.Status == jobrunner.StatusCancelled {
		updateType = progressbus.UpdateJobDeleted
	}
	w.emit(ctx, job, updateType)
}

func (w *Worker) emit(ctx context.Context, job *Job, updateType progressbus.UpdateType) {
	if w.Bus == nil {
		return
	}
	_ = w.Bus.EmitJobUpdate(ctx, job.UserID, updateType, progressbus.JobUpdatePayload{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Error:    job.Error,
	})
}
