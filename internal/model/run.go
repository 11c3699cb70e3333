package model

import "time"

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records one engine execution over a quarter pair. Terminal runs are
// immutable; the coverage summary and diagnostic counts are filled in on
// completion.
type Run struct {
	ID               string           `json:"id"`
	RequestedQuarter Quarter          `json:"requested_quarter"`
	PriorQuarter     Quarter          `json:"prior_quarter"`
	Status           RunStatus        `json:"status"`
	Error            string           `json:"error,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty"`
	Coverage         *CoverageSummary `json:"coverage,omitempty"`
	Diagnostics      DiagnosticCounts `json:"diagnostics"`
}

// ReportArtifact points at one persisted report (JSON plus Markdown) that a
// completed run produced.
type ReportArtifact struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	Kind         ReportKind `json:"kind"`
	Metric       Metric     `json:"metric"`
	Quarter      Quarter    `json:"quarter"`
	JSONPath     string     `json:"json_path"`
	MarkdownPath string     `json:"markdown_path"`
	CreatedAt    time.Time  `json:"created_at"`
}
