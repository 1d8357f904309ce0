// Engine configuration and its validation.
package types

import (
	"errors"
	"fmt"
)

// Config holds the engine settings loaded from phasegate.yaml.
type Config struct {
	FailOpen        bool           `json:"fail_open" yaml:"fail_open" mapstructure:"fail_open"`
	LogLevel        string         `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	RequirementsDir string         `json:"requirements_dir" yaml:"requirements_dir" mapstructure:"requirements_dir"`
	BacklogFile     string         `json:"backlog_file" yaml:"backlog_file" mapstructure:"backlog_file"`
	TierThresholds  TierThresholds `json:"tier_thresholds" yaml:"tier_thresholds" mapstructure:"tier_thresholds"`
	Limits          Limits         `json:"limits" yaml:"limits" mapstructure:"limits"`
	Regression      Regression     `json:"regression" yaml:"regression" mapstructure:"regression"`
	WorkflowPhases  []string       `json:"workflow_phases" yaml:"workflow_phases" mapstructure:"workflow_phases"`
}

// TierThresholds are inclusive file-count ceilings for the lower tiers.
// Anything above Standard is epic.
type TierThresholds struct {
	Trivial  int `json:"trivial" yaml:"trivial" mapstructure:"trivial"`
	Light    int `json:"light" yaml:"light" mapstructure:"light"`
	Standard int `json:"standard" yaml:"standard" mapstructure:"standard"`
}

// DefaultTierThresholds returns trivial ≤2, light ≤8, standard ≤20.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{Trivial: 2, Light: 8, Standard: 20}
}

// Limits bound the arrays pruned on every state write.
type Limits struct {
	History         int `json:"history" yaml:"history" mapstructure:"history"`
	SkillUsageLog   int `json:"skill_usage_log" yaml:"skill_usage_log" mapstructure:"skill_usage_log"`
	WorkflowHistory int `json:"workflow_history" yaml:"workflow_history" mapstructure:"workflow_history"`
}

// DefaultLimits returns the pruning bounds used when unconfigured.
func DefaultLimits() Limits {
	return Limits{History: 50, SkillUsageLog: 20, WorkflowHistory: 50}
}

// Regression configures duration-regression detection.
type Regression struct {
	Window           int     `json:"window" yaml:"window" mapstructure:"window"`
	ThresholdPercent float64 `json:"threshold_percent" yaml:"threshold_percent" mapstructure:"threshold_percent"`
}

// DefaultRegression compares against the last 5 runs with a 20% margin.
func DefaultRegression() Regression {
	return Regression{Window: 5, ThresholdPercent: 20}
}

// DefaultConfig returns the configuration used when phasegate.yaml is absent.
func DefaultConfig() Config {
	return Config{
		FailOpen:        true,
		LogLevel:        "warn",
		RequirementsDir: "docs/requirements",
		BacklogFile:     "BACKLOG.md",
		TierThresholds:  DefaultTierThresholds(),
		Limits:          DefaultLimits(),
		Regression:      DefaultRegression(),
		WorkflowPhases:  append([]string(nil), FeatureWorkflowPhases...),
	}
}

// Config validation errors.
var (
	ErrThresholdsOrder = errors.New("tier thresholds must be positive and ascending")
	ErrLimitInvalid    = errors.New("pruning limits must be positive")
	ErrWindowInvalid   = errors.New("regression window must be positive")
	ErrLogLevelUnknown = errors.New("unknown log level")
)

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the thresholds are usable.
func (t TierThresholds) Validate() error {
	if t.Trivial < 0 || t.Light <= t.Trivial || t.Standard <= t.Light {
		return fmt.Errorf("%w: trivial=%d light=%d standard=%d", ErrThresholdsOrder, t.Trivial, t.Light, t.Standard)
	}
	return nil
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if err := c.TierThresholds.Validate(); err != nil {
		return err
	}
	if c.Limits.History <= 0 || c.Limits.SkillUsageLog <= 0 || c.Limits.WorkflowHistory <= 0 {
		return ErrLimitInvalid
	}
	if c.Regression.Window <= 0 {
		return ErrWindowInvalid
	}
	if !knownLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %q", ErrLogLevelUnknown, c.LogLevel)
	}
	return nil
}
