// Package jobqueue implements the Job Queue & Progress Bus's persistence
// half (spec.md §2 component 10): a Job document with status/progress
// fields, a Redis-backed queue with an in-memory fallback, and a worker
// consumption loop. Grounded on the teacher's web.Job/web.JobRepository
// (web/job.go) for the document shape, generalized from the teacher's
// file-backed CSV result store to the richer Job Runner record set this
// module produces, and on the teacher's runner/webrunner.webrunner's
// poll-and-dispatch loop for the consumption pattern.
package jobqueue

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/jobrunner"
)

// Job is the persisted unit of work (spec.md §3 "Job").
type Job struct {
	ID     string
	UserID string

	Params jobrunner.Params

	Status   jobrunner.Status
	Progress jobrunner.Progress

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	Result []jobrunner.Record
	Error  *jobrunner.JobError

	// Metrics mirrors spec.md §3's Job.metrics "{dataPointsCollected, ...}".
	Metrics map[string]int

	// cancelRequested is the externally-set intent a CancelJob RPC flips;
	// it is not itself persisted status (spec.md §5 "Cancellation").
	cancelRequested bool
}

// NewJob constructs a waiting Job for params, owned by userID.
func NewJob(userID string, params jobrunner.Params) *Job {
	return &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Params:    params,
		Status:    jobrunner.StatusWaiting,
		CreatedAt: time.Now(),
		Metrics:   map[string]int{},
	}
}

// RequestCancel flips the cooperative cancellation flag the owning worker
// polls at every suspension point.
func (j *Job) RequestCancel() { j.cancelRequested = true }

// Cancelled reports the cooperative cancellation flag; passed to
// jobrunner.Runner.Run as the CancelFunc.
func (j *Job) Cancelled() bool { return j.cancelRequested }

// Validate rejects a Job whose parameters are structurally incomplete,
// mirroring the teacher's web.Job.Validate gate before Service.Create
// persists anything.
func (j *Job) Validate() error {
	if j.UserID == "" {
		return errMissing("userId")
	}
	if j.Params.Keyword == "" {
		return errMissing("keyword")
	}
	if j.Params.Country == "" {
		return errMissing("country")
	}
	if j.Params.MaxRecords <= 0 {
		return errMissing("maxRecords")
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return "jobqueue: missing " + string(e) }

func errMissing(field string) error { return validationError(field) }
