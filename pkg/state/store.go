// Package state persists workflow run history: one row per runner start
// plus a log of executed actions. Plugin state is never persisted; the
// store records outcomes only.
package state

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/internal/storedb"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

const historyModule = "history"

// Store is the sqlite-backed run-history store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// RunSummary is one recorded workflow run.
type RunSummary struct {
	ID              string
	Workflow        string
	StartedAt       time.Time
	CompletedAt     time.Time
	EventsProcessed uint64
	ActionsExecuted uint64
	ErrorCount      uint64
}

// ActionRecord is one executed action within a run.
type ActionRecord struct {
	RunID     string
	Timestamp time.Time
	Rule      string
	Action    string
	Success   bool
	Message   string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := storedb.Open(storedb.OpenOptions{
		Path:       path,
		Module:     historyModule,
		Migrations: historyMigrations(),
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func historyMigrations() []storedb.Migration {
	return []storedb.Migration{
		{
			Version: 1,
			Name:    "create_runs_and_actions",
			SQL: `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  workflow TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  events_processed INTEGER NOT NULL DEFAULT 0,
  actions_executed INTEGER NOT NULL DEFAULT 0,
  error_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_workflow_started ON runs(workflow, started_at DESC);

CREATE TABLE IF NOT EXISTS action_log (
  run_id TEXT NOT NULL,
  ts TEXT NOT NULL,
  rule TEXT NOT NULL,
  action TEXT NOT NULL,
  success INTEGER NOT NULL,
  message TEXT,
  FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_action_log_run ON action_log(run_id, ts);
`,
		},
	}
}

// StartRun records the beginning of a workflow run and returns its id.
func (s *Store) StartRun(workflow string) (string, error) {
	id := "run_" + uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs(id, workflow, started_at) VALUES (?, ?, ?)`,
		id, workflow, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", errx.Wrap(ErrRecordRun, err)
	}
	return id, nil
}

// FinishRun stamps the completion time and final counters onto a run.
func (s *Store) FinishRun(runID string, state *api.WorkflowState) error {
	_, err := s.db.Exec(
		`UPDATE runs SET completed_at = ?, events_processed = ?, actions_executed = ?, error_count = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		state.EventsProcessed, state.ActionsExecuted, state.ErrorCount, runID,
	)
	if err != nil {
		return errx.Wrap(ErrRecordRun, err)
	}
	return nil
}

// RecordAction appends one action outcome to the run's log.
func (s *Store) RecordAction(runID, rule, action string, result api.ActionResult) error {
	_, err := s.db.Exec(
		`INSERT INTO action_log(run_id, ts, rule, action, success, message) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339Nano),
		rule, action, boolToInt(result.Success), result.Message,
	)
	if err != nil {
		return errx.Wrap(ErrRecordAction, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, workflow, started_at, COALESCE(completed_at, ''),
		        events_processed, actions_executed, error_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errx.Wrap(ErrQueryHistory, err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, completed string
		if err := rows.Scan(&r.ID, &r.Workflow, &started, &completed,
			&r.EventsProcessed, &r.ActionsExecuted, &r.ErrorCount); err != nil {
			return nil, errx.Wrap(ErrQueryHistory, err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if completed != "" {
			r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Actions returns the action log of one run in execution order.
func (s *Store) Actions(runID string) ([]ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, ts, rule, action, success, COALESCE(message, '')
		 FROM action_log WHERE run_id = ? ORDER BY ts`, runID)
	if err != nil {
		return nil, errx.Wrap(ErrQueryHistory, err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var ts string
		var success int
		if err := rows.Scan(&rec.RunID, &ts, &rec.Rule, &rec.Action, &success, &rec.Message); err != nil {
			return nil, errx.Wrap(ErrQueryHistory, err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		rec.Success = success != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
