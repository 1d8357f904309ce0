package backlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/phasegate/internal/logging"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func TestDeriveAnalysisStatus(t *testing.T) {
	light := &types.SizingDecision{Intensity: types.IntensityLight, LightSkipPhases: []string{"03-architecture", "04-design"}}
	tests := []struct {
		name   string
		phases []string
		sizing *types.SizingDecision
		want   string
	}{
		{"none", nil, nil, types.AnalysisRaw},
		{"some", []string{"00-quick-scan", "01-requirements"}, nil, types.AnalysisPartial},
		{"all", types.AnalysisPhases, nil, types.AnalysisAnalyzed},
		{"light sizing satisfied", []string{"00-quick-scan", "01-requirements", "02-impact-analysis"}, light, types.AnalysisAnalyzed},
		{"light sizing unsatisfied", []string{"00-quick-scan"}, light, types.AnalysisPartial},
		{"light sizing with nothing done", nil, light, types.AnalysisRaw},
		{"non-analysis phases ignored", []string{"06-implementation"}, nil, types.AnalysisRaw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAnalysisStatus(tt.phases, tt.sizing)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveAnalysisStatus(tt.phases, tt.sizing), "same input, same status")
		})
	}
}

func TestComputeStartPhase(t *testing.T) {
	t.Run("two of five", func(t *testing.T) {
		sp := ComputeStartPhase([]string{"00-quick-scan", "01-requirements"}, nil, nil, nil)
		assert.Equal(t, types.AnalysisPartial, sp.Status)
		assert.Equal(t, "02-impact-analysis", sp.StartPhase)
	})

	t.Run("raw starts at quick scan", func(t *testing.T) {
		sp := ComputeStartPhase(nil, nil, nil, nil)
		assert.Equal(t, types.AnalysisRaw, sp.Status)
		assert.Equal(t, "00-quick-scan", sp.StartPhase)
		assert.Equal(t, []string{}, sp.PhasesCompleted)
	})

	t.Run("non-contiguous input is truncated with a warning", func(t *testing.T) {
		tl := logging.NewTestLogger()
		sp := ComputeStartPhase([]string{"00-quick-scan", "02-impact-analysis", "03-architecture"}, nil, nil, tl.Logger)
		assert.Equal(t, []string{"00-quick-scan"}, sp.PhasesCompleted)
		assert.Equal(t, []string{"02-impact-analysis", "03-architecture"}, sp.Dropped)
		assert.Equal(t, "01-requirements", sp.StartPhase)
		tl.AssertLogged(t, zapcore.WarnLevel, "non-contiguous")
	})

	t.Run("analyzed resumes at first build phase", func(t *testing.T) {
		sp := ComputeStartPhase(types.AnalysisPhases, nil, nil, nil)
		assert.Equal(t, types.AnalysisAnalyzed, sp.Status)
		assert.Equal(t, "05-test-strategy", sp.StartPhase)
	})

	t.Run("light sizing complete uses workflow", func(t *testing.T) {
		light := &types.SizingDecision{Intensity: types.IntensityLight, LightSkipPhases: []string{"03-architecture", "04-design"}}
		workflow := []string{"00-quick-scan", "01-requirements", "02-impact-analysis", "06-implementation", "08-code-review"}
		sp := ComputeStartPhase([]string{"00-quick-scan", "01-requirements", "02-impact-analysis"}, light, workflow, nil)
		assert.Equal(t, types.AnalysisAnalyzed, sp.Status)
		assert.Equal(t, "06-implementation", sp.StartPhase)
	})
}

func TestValidatePhaseSequenceIsPrefix(t *testing.T) {
	inputs := [][]string{
		{"04-design"},
		{"01-requirements", "00-quick-scan"},
		{"00-quick-scan", "00-quick-scan", "bogus"},
		types.AnalysisPhases,
	}
	for _, in := range inputs {
		valid, _ := ValidatePhaseSequence(in)
		assert.Equal(t, types.AnalysisPhases[:len(valid)], valid)
	}
}
