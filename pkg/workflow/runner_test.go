package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-dev/waxwing/pkg/api"
	"github.com/waxwing-dev/waxwing/pkg/plugin"
	"github.com/waxwing-dev/waxwing/pkg/state"
)

// runnerGuestWat logs one line from a "process" action.
const runnerGuestWat = `
(module
  (import "host" "request" (func $request (param i32 i32) (result i64)))
  (memory (export "memory") 1)
  (data (i32.const 0) "{\"type\":\"log\",\"level\":\"info\",\"message\":\"ran\"}")
  (global $next (mut i32) (i32.const 4096))
  (func (export "_alloc") (param $size i32) (result i32)
    (local $ptr i32)
    global.get $next
    local.set $ptr
    global.get $next
    local.get $size
    i32.add
    global.set $next
    local.get $ptr)
  (func (export "process") (result i32)
    (drop (call $request (i32.const 0) (i32.const 45)))
    i32.const 0))
`

func TestRunnerCopiesMatchingFiles(t *testing.T) {
	watchDir := t.TempDir()
	backupDir := filepath.Join(t.TempDir(), "backup")

	cfg := Config{
		Workflow: api.Workflow{Name: "test", Enabled: true, Version: "1.0.0"},
		Watch:    []WatchConfig{{Path: watchDir}},
		Rules: []RuleConfig{{
			Name:     "backup-pdfs",
			Patterns: []string{"*.pdf"},
			Events:   []Trigger{TriggerCreated},
			Actions:  []ActionConfig{{Type: ActionCopy, Destination: backupDir}},
		}},
	}
	require.NoError(t, cfg.Validate())

	runner := NewRunner(cfg, RunnerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// Give the watcher a moment to arm before producing events.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "a.pdf"), []byte("pdf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "b.txt"), []byte("txt"), 0o644))

	copied := filepath.Join(backupDir, "a.pdf")
	require.Eventually(t, func() bool {
		_, err := os.Stat(copied)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "matching file should be copied")

	cancel()
	require.NoError(t, <-done)

	st := runner.State()
	assert.Equal(t, api.StatusStopped, st.Status)
	assert.GreaterOrEqual(t, st.EventsProcessed, uint64(1))
	assert.GreaterOrEqual(t, st.ActionsExecuted, uint64(1))
	assert.NoFileExists(t, filepath.Join(backupDir, "b.txt"), "non-matching pattern must not fire")
}

func TestRunnerCreatesMissingWatchPath(t *testing.T) {
	watchDir := filepath.Join(t.TempDir(), "not-yet")

	cfg := Config{
		Workflow: api.Workflow{Name: "test", Enabled: true, Version: "1.0.0"},
		Watch:    []WatchConfig{{Path: watchDir}},
		Rules: []RuleConfig{{
			Name:    "noop",
			Actions: []ActionConfig{{Type: ActionDelete}},
		}},
	}

	runner := NewRunner(cfg, RunnerOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, runner.Run(ctx))
	assert.DirExists(t, watchDir)
}

func TestRunnerExecutesPluginActions(t *testing.T) {
	watchDir := t.TempDir()
	pluginDir := t.TempDir()

	wasm, err := wasmtime.Wat2Wasm(runnerGuestWat)
	require.NoError(t, err)
	pluginPath := filepath.Join(pluginDir, "logger.wasm")
	require.NoError(t, os.WriteFile(pluginPath, wasm, 0o644))

	historyPath := filepath.Join(t.TempDir(), "history.db")
	store, err := state.Open(historyPath)
	require.NoError(t, err)
	defer store.Close()

	cfg := Config{
		Workflow: api.Workflow{Name: "plugged", Enabled: true, Version: "1.0.0"},
		Watch:    []WatchConfig{{Path: watchDir}},
		Plugins:  []plugin.Config{plugin.NewConfig(pluginPath)},
		Rules: []RuleConfig{{
			Name:    "log-everything",
			Actions: []ActionConfig{{Type: ActionPlugin, Plugin: "logger", Action: "process"}},
		}},
	}
	require.NoError(t, cfg.Validate())

	runner := NewRunner(cfg, RunnerOptions{History: store})
	t.Cleanup(runner.Registry().Close)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "trigger.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return runner.State().ActionsExecuted > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	runs, err := store.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	actions, err := store.Actions(runs[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, actions)
	assert.Equal(t, "plugin", actions[0].Action)
	assert.True(t, actions[0].Success)
}

func TestRunnerPluginFailureIsCountedNotFatal(t *testing.T) {
	watchDir := t.TempDir()

	cfg := Config{
		Workflow: api.Workflow{Name: "broken", Enabled: true, Version: "1.0.0"},
		Watch:    []WatchConfig{{Path: watchDir}},
		Rules: []RuleConfig{{
			Name:    "ghost-plugin",
			Actions: []ActionConfig{{Type: ActionPlugin, Plugin: "ghost", Action: "run"}},
		}},
	}

	runner := NewRunner(cfg, RunnerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "t.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return runner.State().ErrorCount > 0
	}, 5*time.Second, 50*time.Millisecond, "missing plugin must count as an error")

	cancel()
	require.NoError(t, <-done, "the loop must survive action errors")
}

func TestRuleMatchingHonoursDisabledRules(t *testing.T) {
	runner := NewRunner(Example(), RunnerOptions{})

	disabled := false
	rule := RuleConfig{
		Name:     "off",
		Patterns: []string{"*"},
		Enabled:  &disabled,
	}
	assert.False(t, rule.IsEnabled())

	ev := api.FileCreated("/w/a.pdf", "/w")
	assert.True(t, runner.ruleMatches(RuleConfig{Name: "all"}, ev),
		"no patterns means match-all for default triggers")
	assert.False(t, runner.ruleMatches(RuleConfig{Name: "deletes", Events: []Trigger{TriggerDeleted}}, ev))
	assert.True(t, runner.ruleMatches(RuleConfig{Name: "pdfs", Patterns: []string{"*.pdf"}}, ev))
	assert.False(t, runner.ruleMatches(RuleConfig{Name: "pngs", Patterns: []string{"*.png"}}, ev))
}

func TestScheduledEventsMatchOnlyTheirRule(t *testing.T) {
	runner := NewRunner(Example(), RunnerOptions{})

	ev := api.NewEvent(api.EventKind{Type: api.EventScheduled, Schedule: "0 2 * * *"}, "schedule")
	assert.True(t, runner.ruleMatches(RuleConfig{Name: "nightly", Schedule: "0 2 * * *"}, ev))
	assert.False(t, runner.ruleMatches(RuleConfig{Name: "other", Schedule: "30 6 * * *"}, ev))
	assert.False(t, runner.ruleMatches(RuleConfig{Name: "fs-rule", Patterns: []string{"*"}}, ev))
}
