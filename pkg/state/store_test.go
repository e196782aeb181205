package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-dev/waxwing/pkg/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)

	runID, err := s.StartRun("inbox-sort")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, s.RecordAction(runID, "backup-pdfs", "copy", api.Succeed("copied")))
	require.NoError(t, s.RecordAction(runID, "backup-pdfs", "plugin", api.Fail("timed out")))

	st := api.NewWorkflowState("inbox-sort")
	st.RecordEvent()
	st.RecordAction()
	st.RecordAction()
	st.RecordError()
	require.NoError(t, s.FinishRun(runID, st))

	runs, err := s.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "inbox-sort", runs[0].Workflow)
	assert.Equal(t, uint64(1), runs[0].EventsProcessed)
	assert.Equal(t, uint64(2), runs[0].ActionsExecuted)
	assert.Equal(t, uint64(1), runs[0].ErrorCount)
	assert.False(t, runs[0].CompletedAt.IsZero())

	actions, err := s.Actions(runID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.True(t, actions[0].Success)
	assert.False(t, actions[1].Success)
	assert.Equal(t, "timed out", actions[1].Message)
}

func TestRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	first, err := s.StartRun("w")
	require.NoError(t, err)
	second, err := s.StartRun("w")
	require.NoError(t, err)

	runs, err := s.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	// Started in the same instant at worst; the newest id is one of the two.
	assert.Contains(t, []string{first, second}, runs[0].ID)

	runs, err = s.Runs(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
