// Package progressbus implements the outbound progress-bus RPC of spec.md
// §6: emitJobUpdate(userId, type, payload) with type ∈ {job_update,
// job_progress, job_deleted, active_jobs_status}. Grounded on the teacher's
// use of Redis (go.mod already vendors github.com/redis/go-redis/v9, used
// across the example pack for pub/sub) as the transport from worker process
// to the HTTP layer's per-user event stream, which sits outside this
// module's scope (spec.md §1 "the real-time push channel to browsers" is
// out of scope) — this package implements only the publish side the Job
// Runner/Queue call into.
package progressbus

import (
	"context"
	"encoding/json"

	"github.com/leadgrid/leadgrid/jobrunner"
)

// UpdateType is spec.md §6's emitJobUpdate type enum.
type UpdateType string

const (
	UpdateJobUpdate        UpdateType = "job_update"
	UpdateJobProgress      UpdateType = "job_progress"
	UpdateJobDeleted       UpdateType = "job_deleted"
	UpdateActiveJobsStatus UpdateType = "active_jobs_status"
)

// JobUpdatePayload is the event body published for job_update/job_progress/
// job_deleted events.
type JobUpdatePayload struct {
	JobID    string             `json:"jobId"`
	Status   string             `json:"status"`
	Progress jobrunner.Progress `json:"progress"`
	Error    *jobrunner.JobError `json:"error,omitempty"`
}

// Bus is the outbound progress-bus contract. RedisBus and InMemoryBus both
// implement it.
type Bus interface {
	EmitJobUpdate(ctx context.Context, userID string, updateType UpdateType, payload interface{}) error
}

// encode marshals payload to JSON once, shared by both Bus implementations.
func encode(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
