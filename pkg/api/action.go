package api

import (
	"context"
	"encoding/json"
)

// Action is the uniform call contract shared by built-in actions and the
// plugin bridge.
type Action interface {
	// Execute runs the action against the triggering event.
	Execute(ctx context.Context, event Event) (ActionResult, error)

	// Name returns the action's short name for logs and counters.
	Name() string

	// Validate checks the action's static configuration.
	Validate() error
}

// ActionResult is the outcome of one action execution.
type ActionResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Output        json.RawMessage `json:"output,omitempty"`
	AffectedPaths []string        `json:"affected_paths,omitempty"`
}

// Succeed builds a successful result with the given message.
func Succeed(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

// Fail builds a failed result with the given message.
func Fail(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}

// WithPaths returns a copy of the result carrying affected paths.
func (r ActionResult) WithPaths(paths ...string) ActionResult {
	r.AffectedPaths = paths
	return r
}

// WithOutput returns a copy of the result carrying output data.
func (r ActionResult) WithOutput(output json.RawMessage) ActionResult {
	r.Output = output
	return r
}
