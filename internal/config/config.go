// Package config loads the engine settings (phasegate.yaml, through viper)
// and the JSON configuration documents the checks consult: per-phase
// iteration requirements and the agent ownership manifest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Config keys in phasegate.yaml.
const (
	KeyFailOpen        = "fail_open"
	KeyLogLevel        = "log_level"
	KeyRequirementsDir = "requirements_dir"
	KeyBacklogFile     = "backlog_file"
	KeyTierTrivial     = "tier_thresholds.trivial"
	KeyTierLight       = "tier_thresholds.light"
	KeyTierStandard    = "tier_thresholds.standard"
	KeyLimitHistory    = "limits.history"
	KeyLimitSkillUsage = "limits.skill_usage_log"
	KeyLimitWorkflows  = "limits.workflow_history"
	KeyRegressionWin   = "regression.window"
	KeyRegressionPct   = "regression.threshold_percent"
	KeyWorkflowPhases  = "workflow_phases"

	envPrefix = "PHASEGATE"
)

// DefaultYAML is written by init when phasegate.yaml does not exist.
const DefaultYAML = `# phasegate engine configuration

# Missing iteration-requirements.json or skills-manifest.json:
# true allows the action, false blocks phase completion.
fail_open: true

# debug, info, warn, error (stderr only)
log_level: warn

requirements_dir: docs/requirements
backlog_file: BACKLOG.md

# Inclusive file-count ceilings; above standard is epic.
tier_thresholds:
  trivial: 2
  light: 8
  standard: 20

limits:
  history: 50
  skill_usage_log: 20
  workflow_history: 50

regression:
  window: 5
  threshold_percent: 20
`

// Load reads phasegate.yaml from the layout's config directory. A missing
// file yields the defaults. PHASEGATE_* environment variables override file
// values (PHASEGATE_TIER_THRESHOLDS_LIGHT for tier_thresholds.light).
func Load(layout paths.Layout) (types.Config, error) {
	v := newViper()
	v.AddConfigPath(layout.ConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.WorkflowPhases) == 0 {
		cfg.WorkflowPhases = append([]string(nil), types.FeatureWorkflowPhases...)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	def := types.DefaultConfig()
	v := viper.New()
	v.SetDefault(KeyFailOpen, def.FailOpen)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyRequirementsDir, def.RequirementsDir)
	v.SetDefault(KeyBacklogFile, def.BacklogFile)
	v.SetDefault(KeyTierTrivial, def.TierThresholds.Trivial)
	v.SetDefault(KeyTierLight, def.TierThresholds.Light)
	v.SetDefault(KeyTierStandard, def.TierThresholds.Standard)
	v.SetDefault(KeyLimitHistory, def.Limits.History)
	v.SetDefault(KeyLimitSkillUsage, def.Limits.SkillUsageLog)
	v.SetDefault(KeyLimitWorkflows, def.Limits.WorkflowHistory)
	v.SetDefault(KeyRegressionWin, def.Regression.Window)
	v.SetDefault(KeyRegressionPct, def.Regression.ThresholdPercent)
	v.SetDefault(KeyWorkflowPhases, def.WorkflowPhases)

	v.SetConfigName(paths.EngineConfigName)
	v.SetConfigType(paths.EngineConfigType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// EnsureDefaultFile writes DefaultYAML unless phasegate.yaml exists.
// It reports whether a file was written.
func EnsureDefaultFile(layout paths.Layout) (bool, error) {
	dir := layout.ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(dir, paths.EngineConfigName+"."+paths.EngineConfigType)

	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultYAML), 0o644); err != nil {
		return false, fmt.Errorf("write config file: %w", err)
	}
	return true, nil
}
