package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string) (Run, []Tree) {
	run := Run{
		ID:         id,
		Scenario:   "test-scenario",
		Seed:       42,
		Replicates: 2,
		CreatedAt:  time.Now(),
		Duration:   1500 * time.Millisecond,
		Status:     StatusCompleted,
	}
	trees := []Tree{
		{RunID: id, Replicate: 0, Survivors: 5, Sampled: 3, Newick: "(1:1)0:0;"},
		{RunID: id, Replicate: 1, Survivors: 8, Sampled: 4, Newick: "(2:1)0:0;"},
	}
	return run, trees
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	run, trees := sampleRun("run-1")
	require.NoError(t, s.SaveRun(run, trees))

	got, gotTrees, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Scenario, got.Scenario)
	assert.Equal(t, run.Seed, got.Seed)
	assert.Equal(t, run.Duration, got.Duration)
	assert.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, 2, len(gotTrees))
	assert.Equal(t, 5, gotTrees[0].Survivors)
	assert.Equal(t, "(2:1)0:0;", gotTrees[1].Newick)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.GetRun("missing")
	assert.Error(t, err)
}

func TestSaveRunDuplicate(t *testing.T) {
	s := openTestStore(t)
	run, trees := sampleRun("run-1")
	require.NoError(t, s.SaveRun(run, trees))
	assert.Error(t, s.SaveRun(run, trees), "duplicate primary key")
}

func TestListRunsOrder(t *testing.T) {
	s := openTestStore(t)
	older, _ := sampleRun("run-old")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer, _ := sampleRun("run-new")
	newer.CreatedAt = time.Now()
	require.NoError(t, s.SaveRun(older, nil))
	require.NoError(t, s.SaveRun(newer, nil))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Equal(t, 2, len(runs))
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)
}

func TestDeleteRunCascades(t *testing.T) {
	s := openTestStore(t)
	run, trees := sampleRun("run-1")
	require.NoError(t, s.SaveRun(run, trees))
	require.NoError(t, s.DeleteRun("run-1"))

	_, _, err := s.GetRun("run-1")
	assert.Error(t, err)
	assert.Error(t, s.DeleteRun("run-1"), "already deleted")
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
