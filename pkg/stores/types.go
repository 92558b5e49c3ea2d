// Package stores persists provisioning run history in SQLite: one row per
// run plus an append-only log of step events. History is best-effort
// bookkeeping for the operator; the provisioner never fails a run because
// the store is unavailable.
package stores

import "time"

// RunStatus represents the status of a provisioning run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StepStatus represents the outcome of a single pipeline step.
type StepStatus string

const (
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
)

// Run is one provisioning run.
type Run struct {
	ID          string     `json:"id"`
	UnitName    string     `json:"unit_name"`
	InstallDir  string     `json:"install_dir"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StepEvent is one pipeline step outcome within a run.
type StepEvent struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id"`
	Step        string     `json:"step"`
	Status      StepStatus `json:"status"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	DurationMS  int64      `json:"duration_ms"`
}
