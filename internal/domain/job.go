package domain

import "time"

// JobState tracks an analysis job through its lifecycle.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// String returns the string representation of JobState.
func (s JobState) String() string {
	return string(s)
}

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// AnalysisJob tracks one in-flight analysis. Corresponds to analysis_jobs
// table in PostgreSQL. At most one non-terminal job exists per fingerprint;
// job stores enforce this with an atomic create.
type AnalysisJob struct {
	JobID       string    `json:"jobId"`
	Fingerprint string    `json:"fingerprint"`
	Chain       Chain     `json:"chain"`
	Address     string    `json:"address"`
	State       JobState  `json:"state"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
