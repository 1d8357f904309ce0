package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func TestRecordRoundTripFillsDefaults(t *testing.T) {
	path := RecordPath(t.TempDir(), "add-login")
	id := "GH-42"
	rec := &types.AnalysisRecord{
		Description:     "Add login",
		Source:          types.SourceGitHub,
		SourceID:        &id,
		CreatedAt:       "2026-02-01T10:00:00Z",
		PhasesCompleted: []string{"00-quick-scan"},
		CodebaseHash:    "abc123",
		SizingDecision:  &types.SizingDecision{Intensity: types.IntensityLight, LightSkipPhases: []string{"03-architecture"}},
		Elaborations: []types.Elaboration{
			{ID: "e1", Round: 1, Topic: "auth", CreatedAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, SaveRecord(path, rec))

	got, err := LoadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, types.CurrentRecordVersion, got.SchemaVersion)
	assert.Equal(t, "Add login", got.Description)
	assert.Equal(t, types.SourceGitHub, got.Source)
	require.NotNil(t, got.SourceID)
	assert.Equal(t, "GH-42", *got.SourceID)
	assert.Equal(t, []string{"00-quick-scan"}, got.PhasesCompleted)
	assert.Equal(t, "abc123", got.CodebaseHash)
	assert.Equal(t, rec.SizingDecision, got.SizingDecision)
	assert.Equal(t, rec.Elaborations, got.Elaborations)

	assert.Equal(t, []string{}, got.StepsCompleted)
	assert.Equal(t, map[string]string{}, got.DepthOverrides)
}

func TestDecodeRecordMinimal(t *testing.T) {
	got, err := DecodeRecord([]byte(`{"description": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, types.SourceManual, got.Source)
	assert.Nil(t, got.SourceID)
	assert.Equal(t, []string{}, got.PhasesCompleted)
	assert.Equal(t, []types.Elaboration{}, got.Elaborations)
	assert.Nil(t, got.SizingDecision)
}

func TestDecodeRecordMigratesLegacyFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "description": "legacy",
  "phase_a_completed": true,
  "phase_a_steps": ["scan", "draft"]
}`), 0o644))

	got, err := LoadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisPhases, got.PhasesCompleted)
	assert.Equal(t, []string{"scan", "draft"}, got.StepsCompleted)

	require.NoError(t, SaveRecord(path, got))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "phase_a_completed")
	assert.NotContains(t, string(data), "phase_a_steps")
}

func TestDecodeRecordLegacyIncomplete(t *testing.T) {
	got, err := DecodeRecord([]byte(`{"schema_version": 1, "phase_a_completed": false}`))
	require.NoError(t, err)
	assert.Empty(t, got.PhasesCompleted)
	assert.Equal(t, types.CurrentRecordVersion, got.SchemaVersion)
}

func TestLoadRecordMissing(t *testing.T) {
	_, err := LoadRecord(filepath.Join(t.TempDir(), "nope", "meta.json"))
	assert.ErrorIs(t, err, types.ErrNoRecord)
}

func TestListRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveRecord(RecordPath(dir, "b-item"), &types.AnalysisRecord{Description: "b"}))
	require.NoError(t, SaveRecord(RecordPath(dir, "a-item"), &types.AnalysisRecord{Description: "a"}))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	slugs, err := ListRecords(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-item", "b-item"}, slugs)

	slugs, err = ListRecords(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, slugs)
}
