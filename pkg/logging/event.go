package logging

import (
	"encoding/json"
	"time"
)

// Event is the canonical structured record emitted by the workflow engine.
// Required fields: Timestamp, RunID, Workflow, EventType, Summary.
// Optional fields use omitempty tags.
type Event struct {
	Timestamp time.Time       `json:"ts"`
	RunID     string          `json:"run_id"`
	Workflow  string          `json:"workflow"`
	EventType string          `json:"event_type"`
	Summary   string          `json:"summary"`
	Plugin    string          `json:"plugin,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event type constants.
const (
	EventRuleMatched      = "rule_matched"
	EventActionResult     = "action_result"
	EventPluginLoaded     = "plugin_loaded"
	EventPluginInvocation = "plugin_invocation"
	EventPermissionDenied = "permission_denied"
)

// RuleMatchedData is the data payload for rule_matched events.
type RuleMatchedData struct {
	Rule    string `json:"rule"`
	EventID string `json:"event_id"`
	Path    string `json:"path,omitempty"`
}

// ActionResultData is the data payload for action_result events.
type ActionResultData struct {
	Rule       string `json:"rule"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// PluginLoadedData is the data payload for plugin_loaded events.
type PluginLoadedData struct {
	Path    string   `json:"path"`
	Actions []string `json:"actions,omitempty"`
}

// PluginInvocationData is the data payload for plugin_invocation events.
type PluginInvocationData struct {
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
	LogLines   int    `json:"log_lines,omitempty"`
}

// PermissionDeniedData is the data payload for permission_denied events.
type PermissionDeniedData struct {
	Permission string `json:"permission"`
	Action     string `json:"action,omitempty"`
}
