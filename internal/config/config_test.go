package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(paths.Layout{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	layout := paths.Layout{Root: t.TempDir()}
	writeFile(t, filepath.Join(layout.ConfigDir(), "phasegate.yaml"), `
fail_open: false
log_level: debug
tier_thresholds:
  trivial: 1
  light: 5
  standard: 12
limits:
  skill_usage_log: 7
`)
	t.Setenv("PHASEGATE_TIER_THRESHOLDS_STANDARD", "30")

	cfg, err := Load(layout)
	require.NoError(t, err)
	assert.False(t, cfg.FailOpen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, types.TierThresholds{Trivial: 1, Light: 5, Standard: 30}, cfg.TierThresholds)
	assert.Equal(t, 7, cfg.Limits.SkillUsageLog)
	assert.Equal(t, 50, cfg.Limits.History)
	assert.Equal(t, types.FeatureWorkflowPhases, cfg.WorkflowPhases)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	layout := paths.Layout{Root: t.TempDir()}
	writeFile(t, filepath.Join(layout.ConfigDir(), "phasegate.yaml"), "tier_thresholds:\n  light: 1\n")

	_, err := Load(layout)
	assert.ErrorIs(t, err, types.ErrThresholdsOrder)
}

func TestEnsureDefaultFile(t *testing.T) {
	layout := paths.Layout{Root: t.TempDir()}

	wrote, err := EnsureDefaultFile(layout)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = EnsureDefaultFile(layout)
	require.NoError(t, err)
	assert.False(t, wrote)

	cfg, err := Load(layout)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}
