package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Requirements is iteration-requirements.json: which phases run test
// iteration control and which must pass the policy gate.
type Requirements struct {
	ConstitutionPath  string                       `json:"constitution_path,omitempty"`
	PhaseRequirements map[string]PhaseRequirements `json:"phase_requirements"`
}

// PhaseRequirements configures one phase.
type PhaseRequirements struct {
	TestIteration            *TestIterationRule `json:"test_iteration,omitempty"`
	ConstitutionalValidation *PolicyRule        `json:"constitutional_validation,omitempty"`
}

// TestIterationRule enables iteration control for a phase.
type TestIterationRule struct {
	Enabled                 bool `json:"enabled"`
	MaxIterations           int  `json:"max_iterations,omitempty"`
	CircuitBreakerThreshold int  `json:"circuit_breaker_threshold,omitempty"`
}

// PolicyRule enables the policy gate for a phase.
type PolicyRule struct {
	Enabled       bool     `json:"enabled"`
	Articles      []string `json:"articles,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
}

// DefaultConstitutionPath is named in remediation guidance when the
// requirements document does not set one.
const DefaultConstitutionPath = "docs/constitution.md"

// ParseRequirements decodes a JSONC requirements document.
func ParseRequirements(data []byte) (*Requirements, error) {
	var r Requirements
	if err := json.Unmarshal(jsonc.ToJSON(data), &r); err != nil {
		return nil, fmt.Errorf("%w: iteration requirements: %v", types.ErrMalformed, err)
	}
	if r.ConstitutionPath == "" {
		r.ConstitutionPath = DefaultConstitutionPath
	}
	return &r, nil
}

// LoadRequirements reads the requirements document at path. A missing file
// returns types.ErrConfigMissing.
func LoadRequirements(path string) (*Requirements, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrConfigMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseRequirements(data)
}

// TestIteration returns the phase's iteration rule when enabled.
func (r *Requirements) TestIteration(phase string) (*TestIterationRule, bool) {
	if r == nil {
		return nil, false
	}
	rule := r.PhaseRequirements[phase].TestIteration
	if rule == nil || !rule.Enabled {
		return nil, false
	}
	return rule, true
}

// PolicyGate returns the phase's policy rule when enabled.
func (r *Requirements) PolicyGate(phase string) (*PolicyRule, bool) {
	if r == nil {
		return nil, false
	}
	rule := r.PhaseRequirements[phase].ConstitutionalValidation
	if rule == nil || !rule.Enabled {
		return nil, false
	}
	return rule, true
}

// Limits resolves iteration thresholds: run overrides, then the phase rule,
// then the package defaults.
func (r *Requirements) Limits(phase string, overrides *types.IterationOverrides) types.IterationLimits {
	limits := types.IterationLimits{
		MaxIterations:           types.DefaultMaxIterations,
		CircuitBreakerThreshold: types.DefaultCircuitBreakerThreshold,
	}
	if rule, ok := r.TestIteration(phase); ok {
		if rule.MaxIterations > 0 {
			limits.MaxIterations = rule.MaxIterations
		}
		if rule.CircuitBreakerThreshold > 0 {
			limits.CircuitBreakerThreshold = rule.CircuitBreakerThreshold
		}
	}
	if overrides != nil {
		if overrides.MaxIterations > 0 {
			limits.MaxIterations = overrides.MaxIterations
		}
		if overrides.CircuitBreakerThreshold > 0 {
			limits.CircuitBreakerThreshold = overrides.CircuitBreakerThreshold
		}
	}
	return limits
}
