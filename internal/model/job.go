package model

import "time"

// JobStatus represents the state of an audit job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Stage is one ordered step of an audit job's pipeline.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageCrawling     Stage = "crawling"
	StagePerformance  Stage = "performance"
	StageSEO          Stage = "seo"
	StageCompetitors  Stage = "competitors"
	StageKeywords     Stage = "keywords"
	StageSocial       Stage = "social"
	StageReport       Stage = "report"
)

// Stages is the fixed stage order. The processor never skips or reorders.
var Stages = []Stage{
	StageInitializing,
	StageCrawling,
	StagePerformance,
	StageSEO,
	StageCompetitors,
	StageKeywords,
	StageSocial,
	StageReport,
}

// StageWeights maps each stage to its share of total progress. Sums to 100.
var StageWeights = map[Stage]int{
	StageInitializing: 5,
	StageCrawling:     10,
	StagePerformance:  20,
	StageSEO:          20,
	StageCompetitors:  20,
	StageKeywords:     15,
	StageSocial:       5,
	StageReport:       5,
}

// StageError records a non-fatal failure in one stage. The job continues with
// the section left at the collector's fallback value.
type StageError struct {
	Stage      Stage     `json:"stage"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditJob is one pass of a customer through the audit pipeline.
type AuditJob struct {
	ID          string       `json:"id"`
	CustomerID  string       `json:"customer_id"`
	Status      JobStatus    `json:"status"`
	StageIndex  int          `json:"stage_index"`
	Progress    int          `json:"progress"`
	StageErrors []StageError `json:"stage_errors,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	EndedAt     *time.Time   `json:"ended_at,omitempty"`
}

// Active reports whether the job still holds the per-customer slot.
func (j AuditJob) Active() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusProcessing
}

// CumulativeProgress sums the weights of the first n completed stages.
func CumulativeProgress(completed int) int {
	if completed >= len(Stages) {
		return 100
	}
	total := 0
	for _, s := range Stages[:completed] {
		total += StageWeights[s]
	}
	return total
}
