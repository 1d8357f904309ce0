package checks

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/classify"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// IterationControl records a test run against the current phase's
// iteration record. It is the post-bash writer.
func IterationControl(c *Context) (Result, error) {
	ev := c.Event
	if ev.Kind != types.ActionBash || !ev.Result.Present || !classify.IsTestCommand(ev.Target.Command) {
		return Allow, nil
	}
	if c.State.ActiveWorkflow == nil || !c.State.IterationEnforcementEnabled() {
		return Allow, nil
	}
	phase := c.State.ActivePhase()
	if phase == "" {
		return Allow, nil
	}
	req, err := c.Requirements()
	if err != nil {
		return Allow, err
	}
	if _, ok := req.TestIteration(phase); !ok {
		return Allow, nil
	}

	ps := c.State.EnsurePhase(phase)
	if ps.IterationRequirements == nil {
		ps.IterationRequirements = &types.IterationRequirements{}
	}
	it := ps.IterationRequirements.TestIteration
	if it == nil {
		it = &types.IterationState{}
		ps.IterationRequirements.TestIteration = it
	}
	if it.Terminal() {
		return diagnostic("test iteration for phase %q is already %s; this run was not recorded", phase, it.Status), nil
	}

	var overrides *types.IterationOverrides
	if aw := c.State.ActiveWorkflow; aw != nil {
		overrides = aw.IterationOverrides
	}
	limits := req.Limits(phase, overrides)
	command := ev.Target.Command
	previous := it.LastCommand()

	if classify.TestPassed(ev.Result.Output, ev.Result.ExitCode) {
		if err := it.RecordSuccess(command, limits, c.Now); err != nil {
			return Allow, err
		}
		next := "the phase may now complete"
		if _, ok := req.PolicyGate(phase); ok {
			next = "next step: constitutional validation (policy gate) for this phase"
		}
		return Result{
			Diagnostics: []string{fmt.Sprintf("tests passed on iteration %d for phase %q; %s", it.CurrentIteration, phase, next)},
			Modified:    true,
		}, nil
	}

	signature := classify.FailureSignature(ev.Result.Output)
	if err := it.RecordFailure(command, signature, limits, c.Now); err != nil {
		return Allow, err
	}
	res := Result{Modified: true}
	if it.Status == types.IterationEscalated {
		c.logger().Warn("test iteration escalated",
			zap.String("phase", phase),
			zap.String("reason", it.EscalationReason),
			zap.Int("iteration", it.CurrentIteration))
		res.Diagnostics = append(res.Diagnostics, escalationMessage(phase, it, limits))
		return res, nil
	}
	res.Diagnostics = append(res.Diagnostics, fmt.Sprintf(
		"tests failed (iteration %d of %d, identical failures %d of %d) for phase %q. Fix the root cause, then re-run the same command: %s",
		it.CurrentIteration, limits.MaxIterations, it.IdenticalFailureCount, limits.CircuitBreakerThreshold, phase, command))
	if previous != "" && previous != command {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("note: the previous run used a different command (%s); keep re-running one command until it passes", previous))
	}
	return res, nil
}

func escalationMessage(phase string, it *types.IterationState, limits types.IterationLimits) string {
	if it.EscalationReason == types.EscalationCircuitBreaker {
		return fmt.Sprintf("ESCALATED: the same failure repeated %d times in phase %q (circuit breaker). Stop iterating; this requires human resolution.",
			it.IdenticalFailureCount, phase)
	}
	return fmt.Sprintf("ESCALATED: phase %q reached the %d-iteration ceiling without passing tests. Stop iterating; this requires human resolution.",
		phase, limits.MaxIterations)
}
