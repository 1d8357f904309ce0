package checks

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/internal/logging"
	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const testRequirements = `{
  "constitution_path": "docs/constitution.md",
  "phase_requirements": {
    "06-implementation": {
      "test_iteration": {"enabled": true, "max_iterations": 5, "circuit_breaker_threshold": 3},
      "constitutional_validation": {"enabled": true, "articles": ["I", "IV", "VII"]}
    },
    "01-requirements": {
      "constitutional_validation": {"enabled": false}
    }
  }
}`

func testState(phase string) *types.WorkflowState {
	return &types.WorkflowState{
		CurrentPhase: phase,
		ActiveWorkflow: &types.ActiveWorkflow{
			Type:   "feature",
			Phases: []string{"01-requirements", "06-implementation"},
		},
		SkillEnforcement: &types.SkillEnforcement{Enabled: true, Mode: types.ModeStrict},
	}
}

type fixture struct {
	ctx *Context
	log *logging.TestLogger
}

func newFixture(t *testing.T, state *types.WorkflowState, ev types.Event) fixture {
	t.Helper()
	log := logging.NewTestLogger()
	layout := paths.Layout{Root: t.TempDir()}
	c := &Context{
		Event:     ev,
		State:     state,
		StatePath: layout.StatePath(),
		Layout:    layout,
		Config:    types.DefaultConfig(),
		Logger:    log.Logger,
		Now:       testNow,
	}
	req, err := config.ParseRequirements([]byte(testRequirements))
	require.NoError(t, err)
	c.SetRequirements(req, nil)
	c.SetOwnership(config.Ownership{
		"requirements-analyst": {Phase: "01-requirements"},
		"software-developer":   {Phase: "06-implementation"},
		"orchestrator":         {Phase: config.PhaseAll},
		"discovery":            {Phase: config.PhaseSetup},
	}, nil)
	return fixture{ctx: c, log: log}
}

func delegate(agent, description string) types.Event {
	return types.Event{Kind: types.ActionTask, Target: types.ActionTarget{SubagentType: agent, Description: description}}
}

func TestGuard(t *testing.T) {
	f := newFixture(t, testState("06-implementation"), types.Event{})

	res, err := Guard("boom", func(*Context) (Result, error) { panic("kaboom") })(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Allow, res)
	f.log.AssertLogged(t, zapcore.DebugLevel, "check panicked")

	res, err = Guard("fails", func(*Context) (Result, error) {
		return blocked("should not surface"), errors.New("broken")
	})(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, res.Decision)
	f.log.AssertLogged(t, zapcore.DebugLevel, "check failed")
}

func TestMissingConfig(t *testing.T) {
	f := newFixture(t, testState("06-implementation"), types.Event{})

	f.ctx.Config.FailOpen = true
	assert.Nil(t, missingConfig(f.ctx, types.ErrConfigMissing, "x").Decision)

	f.ctx.Config.FailOpen = false
	res := missingConfig(f.ctx, types.ErrConfigMissing, "requirements unavailable")
	require.NotNil(t, res.Decision)
	assert.Contains(t, res.Decision.Reason, "requirements unavailable")
}

func TestContextLoadsLazily(t *testing.T) {
	c := &Context{Layout: paths.Layout{Root: t.TempDir()}}
	_, err := c.Requirements()
	assert.ErrorIs(t, err, types.ErrConfigMissing)
	_, err = c.Ownership()
	assert.ErrorIs(t, err, types.ErrConfigMissing)
}
