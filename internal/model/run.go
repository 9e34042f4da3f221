package model

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a report run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"   // initial
	RunStatusCompleted RunStatus = "completed" // terminal
	RunStatusFailed    RunStatus = "failed"    // terminal
)

// IsTerminal returns true for completed and failed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Progress checkpoints written during a run.
const (
	ProgressStarted = 10
	ProgressFetched = 60
	ProgressDone    = 100
)

// Run is one persisted execution attempt of a report against a filter set.
type Run struct {
	ID          string          `json:"run_id"`
	UserID      string          `json:"-"`
	ReportID    string          `json:"report_id"`
	Filters     Filters         `json:"filters"`
	Options     ExportOptions   `json:"options"`
	Status      RunStatus       `json:"status"`
	Progress    int             `json:"progress"`
	RowCount    int             `json:"row_count"`
	Preview     json.RawMessage `json:"preview,omitempty"`
	Metrics     Metrics         `json:"metrics,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewRun creates a Run in the running state.
func NewRun(id, userID, reportID string, filters Filters, opts ExportOptions, now time.Time) *Run {
	return &Run{
		ID:        id,
		UserID:    userID,
		ReportID:  reportID,
		Filters:   filters,
		Options:   opts,
		Status:    RunStatusRunning,
		Progress:  ProgressStarted,
		CreatedAt: now,
		StartedAt: now,
	}
}

// RunResult is what a successful execution writes to its run.
type RunResult struct {
	RowCount int
	Preview  json.RawMessage
	Metrics  Metrics
}

// StaleRunMessage is recorded on runs abandoned by a crashed process.
const StaleRunMessage = "abandoned: run did not finish before lease expired"
