// Iteration and policy-gate records and their state transitions. Methods
// modify the struct in memory; callers persist the enclosing state document.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Iteration statuses.
const (
	IterationActive    = "active"
	IterationSuccess   = "success"
	IterationEscalated = "escalated"
)

// Escalation reasons.
const (
	EscalationCircuitBreaker = "circuit_breaker"
	EscalationMaxIterations  = "max_iterations"
)

// Test attempt results.
const (
	ResultPassed = "PASSED"
	ResultFailed = "FAILED"
)

// Defaults applied when neither the run nor the phase configures a limit.
const (
	DefaultMaxIterations           = 10
	DefaultCircuitBreakerThreshold = 3
)

// IterationState tracks test iterations for one phase.
type IterationState struct {
	Completed             bool               `json:"completed"`
	CurrentIteration      int                `json:"current_iteration"`
	MaxIterations         int                `json:"max_iterations"`
	FailuresCount         int                `json:"failures_count"`
	IdenticalFailureCount int                `json:"identical_failure_count"`
	History               []IterationAttempt `json:"history"`
	Status                string             `json:"status,omitempty"`
	EscalationReason      string             `json:"escalation_reason,omitempty"`
	StartedAt             string             `json:"started_at,omitempty"`
	CompletedAt           string             `json:"completed_at,omitempty"`
}

// IterationAttempt is one recorded test run.
type IterationAttempt struct {
	Iteration int    `json:"iteration"`
	Timestamp string `json:"timestamp,omitempty"`
	Command   string `json:"command"`
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
}

// IterationLimits are the resolved thresholds for one transition.
type IterationLimits struct {
	MaxIterations           int
	CircuitBreakerThreshold int
}

// normalized fills zero limits with the defaults.
func (l IterationLimits) normalized() IterationLimits {
	if l.MaxIterations <= 0 {
		l.MaxIterations = DefaultMaxIterations
	}
	if l.CircuitBreakerThreshold <= 0 {
		l.CircuitBreakerThreshold = DefaultCircuitBreakerThreshold
	}
	return l
}

// Terminal reports whether the record accepts no further attempts.
func (it *IterationState) Terminal() bool {
	return it.Status == IterationSuccess || it.Status == IterationEscalated
}

// RecordSuccess records a passing run and completes the record.
// Returns ErrInvalidTransition if the record is terminal.
func (it *IterationState) RecordSuccess(command string, limits IterationLimits, now time.Time) error {
	if it.Terminal() {
		return ErrInvalidTransition
	}
	it.begin(limits.normalized(), now)
	it.History = append(it.History, IterationAttempt{
		Iteration: it.CurrentIteration,
		Timestamp: Timestamp(now),
		Command:   command,
		Result:    ResultPassed,
	})
	it.Status = IterationSuccess
	it.Completed = true
	it.IdenticalFailureCount = 0
	it.EscalationReason = ""
	it.CompletedAt = Timestamp(now)
	return nil
}

// RecordFailure records a failing run. The identical-failure counter grows
// while the error text matches the preceding consecutive failure and resets
// to 1 otherwise. The circuit breaker is checked before the iteration
// ceiling. Returns ErrInvalidTransition if the record is terminal.
func (it *IterationState) RecordFailure(command, errText string, limits IterationLimits, now time.Time) error {
	if it.Terminal() {
		return ErrInvalidTransition
	}
	limits = limits.normalized()
	it.begin(limits, now)
	errText = strings.TrimSpace(errText)

	it.FailuresCount++
	if prev, ok := it.lastFailure(); ok && prev.Error == errText {
		it.IdenticalFailureCount++
	} else {
		it.IdenticalFailureCount = 1
	}
	it.History = append(it.History, IterationAttempt{
		Iteration: it.CurrentIteration,
		Timestamp: Timestamp(now),
		Command:   command,
		Result:    ResultFailed,
		Error:     errText,
	})

	switch {
	case it.IdenticalFailureCount >= limits.CircuitBreakerThreshold:
		it.escalate(EscalationCircuitBreaker)
	case it.CurrentIteration >= limits.MaxIterations:
		it.escalate(EscalationMaxIterations)
	default:
		it.Status = IterationActive
	}
	return nil
}

// LastCommand returns the command of the most recent attempt.
func (it *IterationState) LastCommand() string {
	if len(it.History) == 0 {
		return ""
	}
	return it.History[len(it.History)-1].Command
}

func (it *IterationState) begin(limits IterationLimits, now time.Time) {
	if it.Status == "" {
		it.Status = IterationActive
	}
	if it.StartedAt == "" {
		it.StartedAt = Timestamp(now)
	}
	it.MaxIterations = limits.MaxIterations
	it.CurrentIteration++
}

func (it *IterationState) escalate(reason string) {
	it.Status = IterationEscalated
	it.EscalationReason = reason
}

// lastFailure returns the previous attempt when it was a failure. A pass in
// between breaks the run of consecutive failures.
func (it *IterationState) lastFailure() (IterationAttempt, bool) {
	if len(it.History) == 0 {
		return IterationAttempt{}, false
	}
	last := it.History[len(it.History)-1]
	if last.Result != ResultFailed {
		return IterationAttempt{}, false
	}
	return last, true
}

// Policy gate statuses.
const (
	GatePending   = "pending"
	GateIterating = "iterating"
	GateCompliant = "compliant"
	GateEscalated = "escalated"
)

// DefaultGateMaxIterations bounds compliance iterations when unconfigured.
const DefaultGateMaxIterations = 5

// PolicyGateState tracks compliance validation for one phase.
type PolicyGateState struct {
	Completed          bool     `json:"completed"`
	Status             string   `json:"status"`
	IterationsUsed     int      `json:"iterations_used"`
	MaxIterations      int      `json:"max_iterations"`
	ArticlesRequired   []string `json:"articles_required,omitempty"`
	ArticlesChecked    []string `json:"articles_checked,omitempty"`
	EscalationApproved *bool    `json:"escalation_approved,omitempty"`
}

// NewPolicyGate returns a pending gate for the given articles.
func NewPolicyGate(articles []string, maxIterations int) *PolicyGateState {
	if maxIterations <= 0 {
		maxIterations = DefaultGateMaxIterations
	}
	return &PolicyGateState{
		Status:           GatePending,
		MaxIterations:    maxIterations,
		ArticlesRequired: append([]string(nil), articles...),
	}
}

// Terminal reports whether the gate accepts no further iterations.
func (g *PolicyGateState) Terminal() bool {
	return g.Status == GateCompliant || g.Status == GateEscalated
}

// RecordIteration records one validation pass that checked articles. A
// compliant pass completes the gate, provided every required article has
// now been checked; a non-compliant pass leaves it iterating and escalates
// once the ceiling is reached. Returns ErrInvalidTransition if the gate is
// terminal and ErrArticlesUnchecked if compliance is claimed early.
func (g *PolicyGateState) RecordIteration(articles []string, compliant bool) error {
	if g.Terminal() {
		return ErrInvalidTransition
	}
	checked := mergeArticles(g.ArticlesChecked, articles)
	if compliant {
		if missing := uncheckedOf(g.ArticlesRequired, checked); len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrArticlesUnchecked, strings.Join(missing, ", "))
		}
	}
	if g.MaxIterations <= 0 {
		g.MaxIterations = DefaultGateMaxIterations
	}
	g.ArticlesChecked = checked
	g.IterationsUsed++
	if compliant {
		g.Status = GateCompliant
		g.Completed = true
		return nil
	}
	g.Status = GateIterating
	g.EscalateIfExhausted()
	return nil
}

// EscalateIfExhausted moves a gate that has used its iterations without
// becoming compliant to escalated, unapproved. It reports whether the
// status changed.
func (g *PolicyGateState) EscalateIfExhausted() bool {
	if g.Terminal() || g.MaxIterations <= 0 || g.IterationsUsed < g.MaxIterations {
		return false
	}
	approved := false
	g.Status = GateEscalated
	g.EscalationApproved = &approved
	return true
}

// Approve records the explicit human approval of an escalated gate.
// Returns ErrInvalidTransition for any other status.
func (g *PolicyGateState) Approve() error {
	if g.Status != GateEscalated {
		return ErrInvalidTransition
	}
	approved := true
	g.EscalationApproved = &approved
	g.Completed = true
	return nil
}

// Satisfied reports whether the gate lets the phase complete. An escalated
// gate passes only with explicit approval; iteration count never suffices.
func (g *PolicyGateState) Satisfied() bool {
	if g == nil {
		return false
	}
	switch g.Status {
	case GateCompliant:
		return true
	case GateEscalated:
		return g.EscalationApproved != nil && *g.EscalationApproved
	default:
		return false
	}
}

// UncheckedArticles returns the required articles not yet checked.
func (g *PolicyGateState) UncheckedArticles() []string {
	return uncheckedOf(g.ArticlesRequired, g.ArticlesChecked)
}

func uncheckedOf(required, checked []string) []string {
	seen := make(map[string]bool, len(checked))
	for _, a := range checked {
		seen[a] = true
	}
	var out []string
	for _, a := range required {
		if !seen[a] {
			out = append(out, a)
		}
	}
	return out
}

// mergeArticles appends the trimmed, non-empty entries of add not already
// present in have.
func mergeArticles(have, add []string) []string {
	out := append([]string(nil), have...)
	seen := make(map[string]bool, len(out)+len(add))
	for _, a := range out {
		seen[a] = true
	}
	for _, a := range add {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
