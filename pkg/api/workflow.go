package api

import "time"

// Workflow is the static identity of a workflow definition.
type Workflow struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Version     string `json:"version" mapstructure:"version"`
}

// WorkflowStatus is the lifecycle state of a running workflow.
type WorkflowStatus string

const (
	StatusIdle    WorkflowStatus = "idle"
	StatusRunning WorkflowStatus = "running"
	StatusStopped WorkflowStatus = "stopped"
)

// WorkflowState tracks counters for one workflow run. It is owned by the
// runner loop and is not safe for concurrent mutation.
type WorkflowState struct {
	WorkflowName    string         `json:"workflow_name"`
	Status          WorkflowStatus `json:"status"`
	StartedAt       time.Time      `json:"started_at,omitzero"`
	CompletedAt     time.Time      `json:"completed_at,omitzero"`
	EventsProcessed uint64         `json:"events_processed"`
	ActionsExecuted uint64         `json:"actions_executed"`
	ErrorCount      uint64         `json:"error_count"`
}

// NewWorkflowState creates an idle state for the named workflow.
func NewWorkflowState(name string) *WorkflowState {
	return &WorkflowState{WorkflowName: name, Status: StatusIdle}
}

// Start marks the workflow running.
func (s *WorkflowState) Start() {
	s.Status = StatusRunning
	s.StartedAt = time.Now().UTC()
}

// Stop marks the workflow stopped.
func (s *WorkflowState) Stop() {
	s.Status = StatusStopped
	s.CompletedAt = time.Now().UTC()
}

// RecordEvent increments the processed-event counter.
func (s *WorkflowState) RecordEvent() { s.EventsProcessed++ }

// RecordAction increments the executed-action counter.
func (s *WorkflowState) RecordAction() { s.ActionsExecuted++ }

// RecordError increments the error counter.
func (s *WorkflowState) RecordError() { s.ErrorCount++ }
