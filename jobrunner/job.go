// Package jobrunner implements the Job Runner orchestrator (spec.md §4.7):
// it expands a job's location scope, drives the Auto-Scroller and Listing
// Harvester per city, runs a worker pool of Detail Extractors against a
// global record limit, emits progress, and honors cancellation. Grounded on
// the teacher's runner.CreateSeedJobs/CreateTiledSeedJobs (scope expansion
// shape) and runner/webrunner.webrunner's errgroup-driven work loop (worker
// pool / status transition shape), generalized from keyword-seed expansion
// to the location-scope expansion spec.md requires.
package jobrunner

import (
	"time"

	"github.com/leadgrid/leadgrid/scrape"
)

// Status is the job lifecycle state machine of spec.md §4.8:
// waiting → active → {completed | failed | cancelled}.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// RatingFilterParams mirrors scrape.RatingFilter as an input parameter
// (pointer-optional, per spec.md §3's Optional[T] fields).
type RatingFilterParams struct {
	Op    string
	Value float64
}

func (p *RatingFilterParams) toScrapeFilter() *scrape.RatingFilter {
	if p == nil {
		return nil
	}
	return &scrape.RatingFilter{Op: p.Op, Value: p.Value}
}

// Params is a job's input parameters (spec.md §3 Job.params).
type Params struct {
	Keyword    string
	Country    string
	State      string // optional
	City       string // optional
	MaxRecords int

	RatingFilter *RatingFilterParams
	ReviewFilter *RatingFilterParams
	ReviewSince  time.Time
	ReviewUntil  time.Time

	IsExtractEmail     bool
	IsValidateEmail    bool
	OnlyWithoutWebsite bool

	Phased bool // enable Big/Mid/Small/Unknown population bucketing
}

// Progress is the progress object the runner writes at reporting points
// (spec.md §4.7 "Progress reporting").
type Progress struct {
	Percentage       int
	ProcessedListings int
	TotalListings    int
	RecordsCollected int
	MaxRecords       int
	CurrentLocation  string
}

// JobError carries the terminal failure reason for a failed/cancelled job.
type JobError struct {
	Message   string
	Timestamp time.Time
}

// Result is the runner's final output: the accumulated records, the
// terminal status, and — for non-completed terminations — the error.
type Result struct {
	Status   Status
	Records  []Record
	Progress Progress
	Err      *JobError
}
