package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func TestLoadStateErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadState(filepath.Join(dir, "state.json"))
	assert.ErrorIs(t, err, types.ErrNoState)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{oops"), 0o644))
	_, err = LoadState(bad)
	assert.ErrorIs(t, err, types.ErrMalformed)
}

func TestSaveStateRoundTripAndPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".phasegate", "state.json")
	s := &types.WorkflowState{CurrentPhase: "06-implementation"}
	for i := 0; i < 30; i++ {
		s.SkillUsageLog = append(s.SkillUsageLog, types.SkillUsageEntry{Agent: fmt.Sprintf("agent-%d", i), Status: types.DelegationAuthorized})
	}
	s.History = []types.HistoryEntry{{Timestamp: "t", Action: "a"}}

	require.NoError(t, SaveState(path, s, types.Limits{History: 50, SkillUsageLog: 20, WorkflowHistory: 50}))

	got, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, "06-implementation", got.CurrentPhase)
	require.Len(t, got.SkillUsageLog, 20)
	assert.Equal(t, "agent-10", got.SkillUsageLog[0].Agent, "oldest entries are evicted")
	assert.Equal(t, "agent-29", got.SkillUsageLog[19].Agent)
	assert.Len(t, got.History, 1)
}

func TestPruneZeroLimitsUseDefaults(t *testing.T) {
	s := &types.WorkflowState{}
	for i := 0; i < 60; i++ {
		s.History = append(s.History, types.HistoryEntry{Action: fmt.Sprint(i)})
	}
	Prune(s, types.Limits{})
	assert.Len(t, s.History, 50)
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
