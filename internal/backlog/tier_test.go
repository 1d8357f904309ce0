package backlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/phasegate/internal/logging"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func TestComputeRecommendedTier(t *testing.T) {
	def := types.DefaultTierThresholds()
	tests := []struct {
		name     string
		files    int
		risk     string
		wantBase string
		want     string
	}{
		{"zero files", 0, types.RiskLow, types.TierTrivial, types.TierTrivial},
		{"trivial boundary", 2, "", types.TierTrivial, types.TierTrivial},
		{"light", 3, types.RiskLow, types.TierLight, types.TierLight},
		{"light boundary", 8, types.RiskLow, types.TierLight, types.TierLight},
		{"standard boundary", 20, types.RiskLow, types.TierStandard, types.TierStandard},
		{"epic", 21, types.RiskLow, types.TierEpic, types.TierEpic},
		{"15 files medium risk", 15, types.RiskMedium, types.TierStandard, types.TierEpic},
		{"high risk promotes one level only", 1, types.RiskHigh, types.TierTrivial, types.TierLight},
		{"epic is capped", 40, types.RiskHigh, types.TierEpic, types.TierEpic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRecommendedTier(tt.files, tt.risk, def, nil)
			assert.Equal(t, tt.wantBase, got.BaseTier)
			assert.Equal(t, tt.want, got.Tier)
		})
	}
}

func TestComputeRecommendedTierInvalidInputs(t *testing.T) {
	tl := logging.NewTestLogger()
	got := ComputeRecommendedTier(-3, types.RiskHigh, types.DefaultTierThresholds(), tl.Logger)
	assert.Equal(t, types.TierStandard, got.Tier)
	tl.AssertLogged(t, zapcore.WarnLevel, "invalid file count")

	tl = logging.NewTestLogger()
	got = ComputeRecommendedTier(5, "catastrophic", types.DefaultTierThresholds(), tl.Logger)
	assert.Equal(t, types.TierLight, got.Tier)
	assert.False(t, got.Promoted)
	tl.AssertLogged(t, zapcore.WarnLevel, "unknown risk level")

	tl = logging.NewTestLogger()
	got = ComputeRecommendedTier(5, types.RiskLow, types.TierThresholds{Trivial: 9, Light: 3, Standard: 1}, tl.Logger)
	assert.Equal(t, types.TierStandard, got.Tier)
	tl.AssertLogged(t, zapcore.WarnLevel, "invalid tier thresholds")
}
