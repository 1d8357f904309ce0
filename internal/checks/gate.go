package checks

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/classify"
	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// completionAttempt returns the current phase when the event is a delegation
// that tries to close it out. Between runs there is nothing to complete.
func completionAttempt(c *Context) (string, bool) {
	if c.Event.Kind != types.ActionTask || c.State.ActiveWorkflow == nil {
		return "", false
	}
	phase := c.State.ActivePhase()
	if phase == "" {
		return "", false
	}
	return phase, classify.IsCompletionIntent(c.Event.Intent())
}

// phaseRequirements loads the requirements document, applying the fail-open
// switch when it cannot be read. A nil Requirements with a nil block means
// the gate does not apply.
func phaseRequirements(c *Context) (*config.Requirements, *Result) {
	req, err := c.Requirements()
	if err != nil {
		res := missingConfig(c, err, "iteration requirements unavailable")
		return nil, &res
	}
	return req, nil
}

// IterationGate blocks completion of a phase that requires test iteration
// until its iteration record reaches success.
func IterationGate(c *Context) (Result, error) {
	phase, ok := completionAttempt(c)
	if !ok {
		return Allow, nil
	}
	req, res := phaseRequirements(c)
	if res != nil {
		return *res, nil
	}
	if _, ok := req.TestIteration(phase); !ok || !c.State.IterationEnforcementEnabled() {
		return Allow, nil
	}

	it := c.State.Phase(phase).TestIteration()
	switch {
	case it == nil || len(it.History) == 0:
		return blocked(fmt.Sprintf("phase %q requires passing tests before completion; no test runs have been recorded", phase)), nil
	case it.Status == types.IterationSuccess:
		return Allow, nil
	case it.Status == types.IterationEscalated:
		return blocked(fmt.Sprintf("phase %q escalated (%s) after %d iterations and requires human resolution before it can complete",
			phase, it.EscalationReason, it.CurrentIteration)), nil
	default:
		return blocked(fmt.Sprintf("phase %q cannot complete: tests are still failing (iteration %d of %d). Fix the failure and re-run %q",
			phase, it.CurrentIteration, it.MaxIterations, it.LastCommand())), nil
	}
}

// PolicyGate blocks completion of a phase that requires constitutional
// validation until the gate is compliant or an escalation is approved. A
// missing gate record is initialized as pending; a gate that has used its
// iterations is escalated.
func PolicyGate(c *Context) (Result, error) {
	phase, ok := completionAttempt(c)
	if !ok {
		return Allow, nil
	}
	req, res := phaseRequirements(c)
	if res != nil {
		return *res, nil
	}
	rule, ok := req.PolicyGate(phase)
	if !ok {
		return Allow, nil
	}

	ps := c.State.EnsurePhase(phase)
	out := Result{}
	if ps.ConstitutionalValidation == nil {
		ps.ConstitutionalValidation = types.NewPolicyGate(rule.Articles, rule.MaxIterations)
		out.Modified = true
	}
	gate := ps.ConstitutionalValidation
	if gate.EscalateIfExhausted() {
		c.logger().Warn("policy gate escalated",
			zap.String("phase", phase),
			zap.Int("iterations_used", gate.IterationsUsed),
			zap.Int("max_iterations", gate.MaxIterations))
		out.Modified = true
	}
	if gate.Satisfied() {
		return out, nil
	}
	out.Decision = types.Block(policyReason(phase, gate, req.ConstitutionPath))
	return out, nil
}

func policyReason(phase string, gate *types.PolicyGateState, constitution string) string {
	var b strings.Builder
	if gate.Status == types.GateEscalated {
		fmt.Fprintf(&b, "phase %q policy gate escalated after %d iterations and needs explicit approval (escalation_approved) before the phase can complete.\n",
			phase, gate.IterationsUsed)
	} else {
		fmt.Fprintf(&b, "phase %q cannot complete until it passes constitutional validation (status %s, %d of %d iterations used).\n",
			phase, gate.Status, gate.IterationsUsed, gate.MaxIterations)
	}
	articles := gate.UncheckedArticles()
	if len(articles) == 0 {
		articles = gate.ArticlesRequired
	}
	if len(articles) > 0 {
		fmt.Fprintf(&b, "Articles to check: %s.\n", strings.Join(articles, ", "))
	}
	if gate.Status == types.GateEscalated {
		fmt.Fprintf(&b, "A human approves with: phasegate gate approve %s", phase)
		return b.String()
	}
	fmt.Fprintf(&b, "1. Read %s.\n", constitution)
	b.WriteString("2. Check the phase artifacts against each article.\n")
	fmt.Fprintf(&b, "3. Record each pass with: phasegate gate record %s --articles <list> [--compliant]\n", phase)
	b.WriteString("4. Fix violations and iterate until the status is compliant.")
	return b.String()
}
