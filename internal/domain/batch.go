package domain

import "time"

// JobState enumerates assignment-job milestones.
type JobState string

const (
	JobPending   JobState = "pending"
	JobAttempted JobState = "attempted"
	JobApplied   JobState = "applied"
	JobSkipped   JobState = "skipped"
	JobFailed    JobState = "failed"
)

// SkipNoClassification is the recorded reason for links whose decision set
// came back empty.
const SkipNoClassification = "no classification above threshold"

// AssignmentJob pairs one input-list link with the decision chosen to act
// on. Once a job reaches a terminal state it is never retried.
type AssignmentJob struct {
	Link        Link
	InputListID int
	Decision    Decision
	State       JobState
	Reason      string
	Applied     []Candidate
	DryRun      bool
	Err         error
}

// Terminal reports whether the job reached applied, skipped, or failed.
func (j AssignmentJob) Terminal() bool {
	switch j.State {
	case JobApplied, JobSkipped, JobFailed:
		return true
	}
	return false
}

// ConfidenceStats aggregates min/max/mean over applied decisions.
type ConfidenceStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// BatchSummary aggregates one batch run. Per-category counts equal the sum
// over all links regardless of worker interleaving.
type BatchSummary struct {
	RunID       string          `json:"run_id"`
	InputListID int             `json:"input_list_id"`
	DryRun      bool            `json:"dry_run"`
	Total       int             `json:"total"`
	Applied     int             `json:"applied"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	PerCategory map[int]int     `json:"per_category"`
	Confidence  ConfidenceStats `json:"confidence"`
	Started     time.Time       `json:"started"`
	Duration    time.Duration   `json:"duration"`
	Jobs        []AssignmentJob `json:"-"`
}
