package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the terminal status of an extraction run.
type JobStatus string

const (
	// JobSucceeded means every discovered post harvested completely.
	JobSucceeded JobStatus = "succeeded"
	// JobPartial means the run finished but some posts are incomplete,
	// some records are low-confidence, or the run was cancelled mid-way.
	JobPartial JobStatus = "partial"
	// JobFailed means a fatal error aborted the run; partial results are retained.
	JobFailed JobStatus = "failed"
)

// ErrorKind identifies a class of pipeline failure.
type ErrorKind string

const (
	// ErrKindUnauthenticated means the session has no valid login state; the
	// caller must re-establish it.
	ErrKindUnauthenticated ErrorKind = "unauthenticated"
	// ErrKindDetected means an anti-automation signal surfaced; the session
	// should be retired, not retried.
	ErrKindDetected ErrorKind = "detected"
	// ErrKindNavigationFailed means the UI did not match the expected surface
	// after bounded retries.
	ErrKindNavigationFailed ErrorKind = "navigation_failed"
	// ErrKindCancelled means the caller aborted the run.
	ErrKindCancelled ErrorKind = "cancelled"
)

// PostResult holds one post's harvested and normalized outcome.
type PostResult struct {
	Post           Post            `json:"post"`
	Records        []ReactorRecord `json:"records"`
	HarvestedCount int             `json:"harvested_count"`
	// Complete is true when the harvested count reached the declared reaction
	// count. The declared count is a heuristic oracle, so false here is a soft
	// flag, not an error.
	Complete bool `json:"complete"`
	// HarvestError records a per-post non-fatal failure, if any.
	HarvestError string `json:"harvest_error,omitempty"`
}

// LowConfidenceCount returns the number of low-confidence records in this result.
func (r *PostResult) LowConfidenceCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Confidence == ConfidenceLow {
			n++
		}
	}
	return n
}

// ExtractionJob is the run-level aggregate handed to the caller. The pipeline
// owns it for the run's duration and never persists it; downstream storage is
// the caller's concern.
type ExtractionJob struct {
	ID          uuid.UUID    `json:"id"`
	ProfileURL  string       `json:"profile_url"`
	Window      TimeWindow   `json:"window"`
	Posts       []PostResult `json:"posts"`
	Status      JobStatus    `json:"status"`
	FailureKind ErrorKind    `json:"failure_kind,omitempty"`
	Stalled     bool         `json:"stalled,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at,omitempty"`
}

// NewExtractionJob creates a job for the given target profile and window.
func NewExtractionJob(profileURL string, window TimeWindow, now time.Time) *ExtractionJob {
	return &ExtractionJob{
		ID:         uuid.New(),
		ProfileURL: profileURL,
		Window:     window,
		StartedAt:  now,
	}
}

// Append records one post's outcome on the job.
func (j *ExtractionJob) Append(result PostResult) {
	j.Posts = append(j.Posts, result)
}

// Fail marks the job failed with the given fatal kind. Accumulated results
// are kept: the caller is always given whatever was harvested before abortion.
func (j *ExtractionJob) Fail(kind ErrorKind, now time.Time) {
	j.Status = JobFailed
	j.FailureKind = kind
	j.FinishedAt = now
}

// Finalize derives the terminal status from the accumulated results.
// Cancelled runs finalize as partial, not failed.
func (j *ExtractionJob) Finalize(cancelled bool, now time.Time) {
	j.FinishedAt = now
	if cancelled {
		j.Status = JobPartial
		j.FailureKind = ErrKindCancelled
		return
	}

	j.Status = JobSucceeded
	if j.Stalled {
		j.Status = JobPartial
	}
	for _, p := range j.Posts {
		if !p.Complete || p.HarvestError != "" || p.LowConfidenceCount() > 0 {
			j.Status = JobPartial
			break
		}
	}
}
