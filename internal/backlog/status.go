package backlog

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// DeriveAnalysisStatus computes the status from the completed phases. A
// light sizing decision counts as analyzed once every phase it still
// requires is complete.
func DeriveAnalysisStatus(phasesCompleted []string, sizing *types.SizingDecision) string {
	done := make(map[string]bool, len(phasesCompleted))
	count := 0
	for _, p := range phasesCompleted {
		if types.IsAnalysisPhase(p) && !done[p] {
			done[p] = true
			count++
		}
	}
	if required := sizing.RequiredPhases(); required != nil && count > 0 {
		all := true
		for _, p := range required {
			if !done[p] {
				all = false
				break
			}
		}
		if all {
			return types.AnalysisAnalyzed
		}
	}
	switch {
	case count == 0:
		return types.AnalysisRaw
	case count == len(types.AnalysisPhases):
		return types.AnalysisAnalyzed
	default:
		return types.AnalysisPartial
	}
}

// ValidatePhaseSequence keeps the longest prefix of the canonical sequence
// present in phases and returns the entries it dropped.
func ValidatePhaseSequence(phases []string) (valid, dropped []string) {
	present := make(map[string]bool, len(phases))
	for _, p := range phases {
		present[p] = true
	}
	valid = []string{}
	for _, p := range types.AnalysisPhases {
		if !present[p] {
			break
		}
		valid = append(valid, p)
	}
	kept := make(map[string]bool, len(valid))
	for _, p := range valid {
		kept[p] = true
	}
	for _, p := range phases {
		if !kept[p] {
			dropped = append(dropped, p)
			kept[p] = true
		}
	}
	return valid, dropped
}

// StartPoint is where analysis or the workflow resumes for an item.
type StartPoint struct {
	Status          string   `json:"status"`
	StartPhase      string   `json:"start_phase"`
	PhasesCompleted []string `json:"phases_completed"`
	Dropped         []string `json:"dropped,omitempty"`
}

// ComputeStartPhase validates the completed phases and returns the resume
// point: the first uncompleted canonical phase or, once analysis is complete,
// the first non-analysis phase of workflow. Non-contiguous entries are
// dropped and logged.
func ComputeStartPhase(phasesCompleted []string, sizing *types.SizingDecision, workflow []string, logger *zap.Logger) StartPoint {
	valid, dropped := ValidatePhaseSequence(phasesCompleted)
	if len(dropped) > 0 && logger != nil {
		logger.Warn("dropping non-contiguous analysis phases", zap.Strings("dropped", dropped), zap.Strings("kept", valid))
	}
	sp := StartPoint{
		Status:          DeriveAnalysisStatus(valid, sizing),
		PhasesCompleted: valid,
		Dropped:         dropped,
	}
	if sp.Status != types.AnalysisAnalyzed {
		sp.StartPhase = types.AnalysisPhases[len(valid)]
		return sp
	}
	if len(workflow) == 0 {
		workflow = types.FeatureWorkflowPhases
	}
	for _, p := range workflow {
		if !types.IsAnalysisPhase(p) {
			sp.StartPhase = p
			break
		}
	}
	return sp
}
