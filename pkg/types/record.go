// Backlog analysis records and the vocabulary they are described in.
package types

import "time"

// Analysis statuses. Always derived from PhasesCompleted and SizingDecision.
const (
	AnalysisRaw      = "raw"
	AnalysisPartial  = "partial"
	AnalysisAnalyzed = "analyzed"
)

// Item sources.
const (
	SourceManual = "manual"
	SourceGitHub = "github"
	SourceJira   = "jira"
)

// Tiers in ascending order of workflow weight.
const (
	TierTrivial  = "trivial"
	TierLight    = "light"
	TierStandard = "standard"
	TierEpic     = "epic"
)

// TierOrder lists tiers from lightest to heaviest.
var TierOrder = []string{TierTrivial, TierLight, TierStandard, TierEpic}

// Risk levels accepted by tier recommendation.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// AnalysisPhases is the canonical analysis sequence. Completed phases must
// always form a prefix of it.
var AnalysisPhases = []string{
	"00-quick-scan",
	"01-requirements",
	"02-impact-analysis",
	"03-architecture",
	"04-design",
}

// FeatureWorkflowPhases is the default full workflow: the analysis phases
// followed by the build phases.
var FeatureWorkflowPhases = []string{
	"00-quick-scan",
	"01-requirements",
	"02-impact-analysis",
	"03-architecture",
	"04-design",
	"05-test-strategy",
	"06-implementation",
	"16-quality-loop",
	"08-code-review",
}

// IsAnalysisPhase reports whether phase belongs to the canonical sequence.
func IsAnalysisPhase(phase string) bool {
	for _, p := range AnalysisPhases {
		if p == phase {
			return true
		}
	}
	return false
}

// CurrentRecordVersion is the schema version written by this package.
// Version 0/1 records carry the single-flag phase_a_completed field.
const CurrentRecordVersion = 2

// Intensity values of a sizing decision.
const (
	IntensityLight    = "light"
	IntensityStandard = "standard"
)

// AnalysisRecord is the per-item analysis document (meta.json).
type AnalysisRecord struct {
	SchemaVersion   int               `json:"schema_version"`
	Description     string            `json:"description"`
	Source          string            `json:"source"`
	SourceID        *string           `json:"source_id"`
	CreatedAt       string            `json:"created_at"`
	AnalysisStatus  string            `json:"analysis_status"`
	PhasesCompleted []string          `json:"phases_completed"`
	StepsCompleted  []string          `json:"steps_completed"`
	DepthOverrides  map[string]string `json:"depth_overrides"`
	CodebaseHash    string            `json:"codebase_hash"`
	SizingDecision  *SizingDecision   `json:"sizing_decision"`
	Elaborations    []Elaboration     `json:"elaborations"`
}

// SizingDecision may shorten the set of phases analysis must complete.
type SizingDecision struct {
	Intensity       string   `json:"intensity"`
	LightSkipPhases []string `json:"light_skip_phases,omitempty"`
	FileCount       int      `json:"file_count,omitempty"`
	RiskLevel       string   `json:"risk_level,omitempty"`
	Rationale       string   `json:"rationale,omitempty"`
}

// RequiredPhases returns the canonical phases a light sizing still requires,
// or nil when the decision does not shorten the sequence.
func (d *SizingDecision) RequiredPhases() []string {
	if d == nil || d.Intensity != IntensityLight || len(d.LightSkipPhases) == 0 {
		return nil
	}
	skip := make(map[string]bool, len(d.LightSkipPhases))
	for _, p := range d.LightSkipPhases {
		skip[p] = true
	}
	var required []string
	for _, p := range AnalysisPhases {
		if !skip[p] {
			required = append(required, p)
		}
	}
	return required
}

// Elaboration is one round of deep discussion on an item. Append-only.
type Elaboration struct {
	ID        string    `json:"id"`
	Round     int       `json:"round"`
	Topic     string    `json:"topic"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SourceRef is the result of source detection.
type SourceRef struct {
	Source      string  `json:"source"`
	SourceID    *string `json:"source_id"`
	Description string  `json:"description"`
}
