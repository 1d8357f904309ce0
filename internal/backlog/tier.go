package backlog

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// TierRecommendation is the result of tier recommendation.
type TierRecommendation struct {
	BaseTier  string `json:"base_tier"`
	Tier      string `json:"tier"`
	Promoted  bool   `json:"promoted"`
	FileCount int    `json:"file_count"`
	RiskLevel string `json:"risk_level,omitempty"`
}

// ComputeRecommendedTier maps a file-count estimate to a tier and promotes
// it one level for medium or high risk, capped at epic. Medium and high
// promote alike. A negative count or invalid thresholds yield standard, an
// unknown risk level promotes nothing; both are logged.
func ComputeRecommendedTier(fileCount int, risk string, thresholds types.TierThresholds, logger *zap.Logger) TierRecommendation {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := TierRecommendation{FileCount: fileCount, RiskLevel: risk}

	if err := thresholds.Validate(); err != nil {
		logger.Warn("invalid tier thresholds, using standard", zap.Error(err))
		rec.BaseTier, rec.Tier = types.TierStandard, types.TierStandard
		return rec
	}
	if fileCount < 0 {
		logger.Warn("invalid file count, using standard", zap.Int("file_count", fileCount))
		rec.BaseTier, rec.Tier = types.TierStandard, types.TierStandard
		return rec
	}

	switch {
	case fileCount <= thresholds.Trivial:
		rec.BaseTier = types.TierTrivial
	case fileCount <= thresholds.Light:
		rec.BaseTier = types.TierLight
	case fileCount <= thresholds.Standard:
		rec.BaseTier = types.TierStandard
	default:
		rec.BaseTier = types.TierEpic
	}
	rec.Tier = rec.BaseTier

	switch risk {
	case types.RiskMedium, types.RiskHigh:
		rec.Tier = promote(rec.BaseTier)
		rec.Promoted = rec.Tier != rec.BaseTier
	case "", types.RiskLow:
	default:
		logger.Warn("unknown risk level, not promoting", zap.String("risk_level", risk))
	}
	return rec
}

func promote(tier string) string {
	for i, t := range types.TierOrder {
		if t == tier && i+1 < len(types.TierOrder) {
			return types.TierOrder[i+1]
		}
	}
	return tier
}
