package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func priorRun(tier string, minutes float64) *types.WorkflowHistoryRecord {
	return &types.WorkflowHistoryRecord{
		ID:             "prior",
		Status:         types.WorkflowCompleted,
		Sizing:         &types.Sizing{EffectiveIntensity: tier},
		PhaseSnapshots: []types.PhaseSnapshot{{Phase: "06-implementation", Status: types.PhaseStatusCompleted}},
		Metrics:        &types.WorkflowMetrics{TotalDurationMinutes: minutes},
	}
}

func archivedState() *types.WorkflowState {
	return &types.WorkflowState{
		Phases: map[string]*types.PhaseState{
			"01-requirements": {
				Status: types.PhaseStatusCompleted, Started: "2026-03-01T08:00:00Z", Completed: "2026-03-01T08:30:00Z",
				Artifacts: []string{"requirements.md"},
			},
			"06-implementation": {
				Status: types.PhaseStatusCompleted, Started: "2026-03-01T08:30:00Z", Completed: "2026-03-01T10:00:00Z",
				IterationRequirements: &types.IterationRequirements{TestIteration: &types.IterationState{CurrentIteration: 3}},
			},
		},
		WorkflowHistory: []*types.WorkflowHistoryRecord{
			priorRun("standard", 60),
			priorRun("light", 500),
			priorRun("standard", 80),
			{
				Type:        "feature",
				StartedAt:   "2026-03-01T08:00:00Z",
				CompletedAt: "2026-03-01T10:00:00Z",
				Sizing:      &types.Sizing{Intensity: "standard"},
				Phases:      []string{"01-requirements", "06-implementation"},
			},
		},
	}
}

func TestCompletionRemediator(t *testing.T) {
	f := newFixture(t, testState("06-implementation"), types.Event{})
	require.NoError(t, store.SaveState(f.ctx.StatePath, archivedState(), types.DefaultLimits()))
	f.ctx.Event = writeEvent(f.ctx.StatePath)

	res, err := CompletionRemediator(f.ctx)
	require.NoError(t, err)
	assert.False(t, res.Modified, "the remediator writes on its own")
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0], "06-implementation")

	s, err := store.LoadState(f.ctx.StatePath)
	require.NoError(t, err)
	rec := s.LastWorkflow()
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, types.WorkflowCompleted, rec.Status)
	require.Len(t, rec.PhaseSnapshots, 2)
	assert.Equal(t, types.PhaseSnapshot{
		Phase: "01-requirements", Status: types.PhaseStatusCompleted,
		Started: "2026-03-01T08:00:00Z", Completed: "2026-03-01T08:30:00Z",
		DurationMinutes: 30, Artifacts: 1,
	}, rec.PhaseSnapshots[0])
	assert.Equal(t, 3, rec.PhaseSnapshots[1].TestIterations)

	require.NotNil(t, rec.Metrics)
	assert.Equal(t, 120.0, rec.Metrics.TotalDurationMinutes)
	assert.Equal(t, 2, rec.Metrics.PhasesCompleted)
	assert.Equal(t, 3, rec.Metrics.TotalTestIterations)

	reg := rec.Metrics.PerformanceRegression
	require.NotNil(t, reg)
	assert.Equal(t, 70.0, reg.AverageMinutes)
	assert.Equal(t, 120.0, reg.CurrentMinutes)
	assert.Equal(t, "06-implementation", reg.SlowestPhase)
}

func TestCompletionRemediatorSkips(t *testing.T) {
	tests := []struct {
		name  string
		state func() *types.WorkflowState
	}{
		{"workflow still active", func() *types.WorkflowState {
			s := archivedState()
			s.ActiveWorkflow = &types.ActiveWorkflow{Type: "feature"}
			return s
		}},
		{"record already complete", func() *types.WorkflowState {
			s := archivedState()
			s.WorkflowHistory = s.WorkflowHistory[:3]
			return s
		}},
		{"no history", func() *types.WorkflowState { return &types.WorkflowState{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testState("06-implementation"), types.Event{})
			before := tt.state()
			require.NoError(t, store.SaveState(f.ctx.StatePath, before, types.DefaultLimits()))
			f.ctx.Event = writeEvent(f.ctx.StatePath)

			res, err := CompletionRemediator(f.ctx)
			require.NoError(t, err)
			assert.Equal(t, Allow, res)

			after, err := store.LoadState(f.ctx.StatePath)
			require.NoError(t, err)
			if rec := after.LastWorkflow(); rec != nil && rec.ID == "" {
				t.Fatal("record was rewritten")
			}
		})
	}
}

func TestCompletionRemediatorFallsBackToPhaseKeys(t *testing.T) {
	f := newFixture(t, testState("06-implementation"), types.Event{})
	s := archivedState()
	s.WorkflowHistory = []*types.WorkflowHistoryRecord{{Type: "bugfix"}}
	require.NoError(t, store.SaveState(f.ctx.StatePath, s, types.DefaultLimits()))
	f.ctx.Event = writeEvent(f.ctx.StatePath)

	_, err := CompletionRemediator(f.ctx)
	require.NoError(t, err)

	after, err := store.LoadState(f.ctx.StatePath)
	require.NoError(t, err)
	rec := after.LastWorkflow()
	require.Len(t, rec.PhaseSnapshots, 2)
	assert.Equal(t, "01-requirements", rec.PhaseSnapshots[0].Phase)
	assert.Equal(t, 120.0, rec.Metrics.TotalDurationMinutes, "phase sum without record times")
}

func TestCompletionRemediatorRunsOnceWithoutPhases(t *testing.T) {
	state := archivedState()
	state.Phases = nil
	state.WorkflowHistory[len(state.WorkflowHistory)-1].Phases = nil

	f := newFixture(t, testState("06-implementation"), types.Event{})
	require.NoError(t, store.SaveState(f.ctx.StatePath, state, types.DefaultLimits()))
	f.ctx.Event = writeEvent(f.ctx.StatePath)

	res, err := CompletionRemediator(f.ctx)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1, "the regression is reported once")

	s, err := store.LoadState(f.ctx.StatePath)
	require.NoError(t, err)
	rec := s.LastWorkflow()
	assert.Empty(t, rec.PhaseSnapshots)
	require.NotNil(t, rec.Metrics)
	assert.Equal(t, 120.0, rec.Metrics.TotalDurationMinutes)

	res, err = CompletionRemediator(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics, "a later write leaves the record alone")
}

func TestDetectRegression(t *testing.T) {
	cfg := types.DefaultRegression()
	current := func(minutes float64) *types.WorkflowHistoryRecord {
		return &types.WorkflowHistoryRecord{
			Sizing:  &types.Sizing{Intensity: "standard"},
			Metrics: &types.WorkflowMetrics{TotalDurationMinutes: minutes},
		}
	}
	prior := []*types.WorkflowHistoryRecord{priorRun("standard", 100), priorRun("standard", 100)}

	assert.Nil(t, DetectRegression(prior, current(120), cfg), "exactly 20% over is not a regression")
	assert.NotNil(t, DetectRegression(prior, current(121), cfg))
	assert.Nil(t, DetectRegression(nil, current(500), cfg), "no baseline")

	cancelled := priorRun("standard", 10)
	cancelled.Status = types.WorkflowCancelled
	assert.Nil(t, DetectRegression(append(prior, cancelled), current(110), cfg))

	window := []*types.WorkflowHistoryRecord{priorRun("standard", 1000)}
	for range 5 {
		window = append(window, priorRun("standard", 10))
	}
	reg := DetectRegression(window, current(20), cfg)
	require.NotNil(t, reg, "only the last 5 runs count")
	assert.Equal(t, 10.0, reg.AverageMinutes)
}
