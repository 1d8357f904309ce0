// Workflow state document: the per-project record of the running workflow,
// per-phase progress, enforcement settings, and bounded logs.
package types

import (
	"encoding/json"
	"sort"
	"time"
)

// Phase status values.
const (
	PhaseStatusPending    = "pending"
	PhaseStatusInProgress = "in_progress"
	PhaseStatusCompleted  = "completed"
	PhaseStatusSkipped    = "skipped"
)

// Enforcement modes for phase authorization.
const (
	ModeStrict  = "strict"
	ModeWarn    = "warn"
	ModeAudit   = "audit"
	ModeObserve = "observe"
)

// WorkflowState is the workflow-state document. Fields this package does not
// model are kept in Extra and written back unchanged.
type WorkflowState struct {
	CurrentPhase         string                   `json:"current_phase,omitempty"`
	ActiveWorkflow       *ActiveWorkflow          `json:"active_workflow"`
	Phases               map[string]*PhaseState   `json:"phases,omitempty"`
	IterationEnforcement *EnforcementToggle       `json:"iteration_enforcement,omitempty"`
	SkillEnforcement     *SkillEnforcement        `json:"skill_enforcement,omitempty"`
	History              []HistoryEntry           `json:"history,omitempty"`
	SkillUsageLog        []SkillUsageEntry        `json:"skill_usage_log,omitempty"`
	WorkflowHistory      []*WorkflowHistoryRecord `json:"workflow_history,omitempty"`
	Blockers             []json.RawMessage        `json:"blockers,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ActiveWorkflow describes the run in progress. It is nil between runs.
type ActiveWorkflow struct {
	Type               string              `json:"type,omitempty"`
	Description        string              `json:"description,omitempty"`
	StartedAt          string              `json:"started_at,omitempty"`
	Phases             []string            `json:"phases,omitempty"`
	CurrentPhaseIndex  int                 `json:"current_phase_index"`
	Sizing             *Sizing             `json:"sizing,omitempty"`
	IterationOverrides *IterationOverrides `json:"iteration_overrides,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Sizing is the tier decision recorded for a workflow run.
type Sizing struct {
	Intensity          string `json:"intensity,omitempty"`
	EffectiveIntensity string `json:"effective_intensity,omitempty"`
	FileCount          int    `json:"file_count,omitempty"`
	RiskLevel          string `json:"risk_level,omitempty"`
}

// Tier returns the effective intensity, falling back to the declared one.
func (s *Sizing) Tier() string {
	if s == nil {
		return ""
	}
	if s.EffectiveIntensity != "" {
		return s.EffectiveIntensity
	}
	return s.Intensity
}

// IterationOverrides are run-scoped limits that win over per-phase config.
type IterationOverrides struct {
	MaxIterations           int `json:"max_iterations,omitempty"`
	CircuitBreakerThreshold int `json:"circuit_breaker_threshold,omitempty"`
}

// EnforcementToggle is a bare enabled flag.
type EnforcementToggle struct {
	Enabled bool `json:"enabled"`
}

// SkillEnforcement configures phase authorization of delegations.
type SkillEnforcement struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode,omitempty"`
}

// PhaseState is the progress of one phase.
type PhaseState struct {
	Status                   string                 `json:"status,omitempty"`
	Started                  string                 `json:"started,omitempty"`
	Completed                string                 `json:"completed,omitempty"`
	ConstitutionalValidation *PolicyGateState       `json:"constitutional_validation,omitempty"`
	IterationRequirements    *IterationRequirements `json:"iteration_requirements,omitempty"`
	Artifacts                []string               `json:"artifacts,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// IterationRequirements groups the iteration records of a phase.
type IterationRequirements struct {
	TestIteration *IterationState `json:"test_iteration,omitempty"`
}

// TestIteration returns the phase's test-iteration record or nil.
func (p *PhaseState) TestIteration() *IterationState {
	if p == nil || p.IterationRequirements == nil {
		return nil
	}
	return p.IterationRequirements.TestIteration
}

// PolicyGate returns the phase's policy-gate record or nil.
func (p *PhaseState) PolicyGate() *PolicyGateState {
	if p == nil {
		return nil
	}
	return p.ConstitutionalValidation
}

// HistoryEntry is one line of the bounded action history.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Agent     string `json:"agent,omitempty"`
	Action    string `json:"action"`
}

// Delegation status values recorded in the skill usage log.
const (
	DelegationAuthorized   = "authorized"
	DelegationUnauthorized = "unauthorized"
	DelegationUnknown      = "unknown"
)

// SkillUsageEntry records one delegation observed by the delegation logger.
type SkillUsageEntry struct {
	Timestamp       string `json:"timestamp"`
	Agent           string `json:"agent"`
	AgentPhase      string `json:"agent_phase,omitempty"`
	CurrentPhase    string `json:"current_phase,omitempty"`
	Status          string `json:"status"`
	EnforcementMode string `json:"enforcement_mode,omitempty"`
}

// Workflow history record statuses.
const (
	WorkflowCompleted = "completed"
	WorkflowCancelled = "cancelled"
)

// WorkflowHistoryRecord is an archived workflow run.
type WorkflowHistoryRecord struct {
	ID             string           `json:"id,omitempty"`
	Type           string           `json:"type,omitempty"`
	Description    string           `json:"description,omitempty"`
	Status         string           `json:"status,omitempty"`
	StartedAt      string           `json:"started_at,omitempty"`
	CompletedAt    string           `json:"completed_at,omitempty"`
	Phases         []string         `json:"phases,omitempty"`
	Sizing         *Sizing          `json:"sizing,omitempty"`
	PhaseSnapshots []PhaseSnapshot  `json:"phase_snapshots,omitempty"`
	Metrics        *WorkflowMetrics `json:"metrics,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// PhaseSnapshot freezes one phase's outcome inside a history record.
type PhaseSnapshot struct {
	Phase           string  `json:"phase"`
	Status          string  `json:"status"`
	Started         string  `json:"started,omitempty"`
	Completed       string  `json:"completed,omitempty"`
	DurationMinutes float64 `json:"duration_minutes"`
	TestIterations  int     `json:"test_iterations"`
	Artifacts       int     `json:"artifacts"`
}

// WorkflowMetrics aggregates a completed run.
type WorkflowMetrics struct {
	TotalDurationMinutes  float64                `json:"total_duration_minutes"`
	PhasesCompleted       int                    `json:"phases_completed"`
	TotalTestIterations   int                    `json:"total_test_iterations"`
	PerformanceRegression *PerformanceRegression `json:"performance_regression,omitempty"`
}

// PerformanceRegression flags a run slower than its tier's rolling average.
type PerformanceRegression struct {
	AverageMinutes float64 `json:"average_minutes"`
	CurrentMinutes float64 `json:"current_minutes"`
	PercentOver    float64 `json:"percent_over"`
	SlowestPhase   string  `json:"slowest_phase,omitempty"`
}

// Phase returns the named phase state, or nil.
func (s *WorkflowState) Phase(id string) *PhaseState {
	if s == nil || s.Phases == nil {
		return nil
	}
	return s.Phases[id]
}

// EnsurePhase returns the named phase state, creating it when absent.
func (s *WorkflowState) EnsurePhase(id string) *PhaseState {
	if s.Phases == nil {
		s.Phases = make(map[string]*PhaseState)
	}
	p, ok := s.Phases[id]
	if !ok || p == nil {
		p = &PhaseState{Status: PhaseStatusPending}
		s.Phases[id] = p
	}
	return p
}

// PhaseIDs returns the phase keys in sorted order.
func (s *WorkflowState) PhaseIDs() []string {
	ids := make([]string, 0, len(s.Phases))
	for id := range s.Phases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnforcementMode returns the skill enforcement mode, defaulting to observe
// when enforcement is absent or disabled.
func (s *WorkflowState) EnforcementMode() string {
	if s.SkillEnforcement == nil || !s.SkillEnforcement.Enabled || s.SkillEnforcement.Mode == "" {
		return ModeObserve
	}
	return s.SkillEnforcement.Mode
}

// IterationEnforcementEnabled reports whether iteration control is on. An
// absent toggle means enabled.
func (s *WorkflowState) IterationEnforcementEnabled() bool {
	return s.IterationEnforcement == nil || s.IterationEnforcement.Enabled
}

// LastWorkflow returns the most recent history record, or nil.
func (s *WorkflowState) LastWorkflow() *WorkflowHistoryRecord {
	if len(s.WorkflowHistory) == 0 {
		return nil
	}
	return s.WorkflowHistory[len(s.WorkflowHistory)-1]
}

// Timestamp formats t the way state documents store times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a stored time. It accepts RFC 3339 with or without
// fractional seconds.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ActivePhase returns current_phase, falling back to the active workflow's
// phase at current_phase_index.
func (s *WorkflowState) ActivePhase() string {
	if s == nil {
		return ""
	}
	if s.CurrentPhase != "" {
		return s.CurrentPhase
	}
	if aw := s.ActiveWorkflow; aw != nil && aw.CurrentPhaseIndex >= 0 && aw.CurrentPhaseIndex < len(aw.Phases) {
		return aw.Phases[aw.CurrentPhaseIndex]
	}
	return ""
}
