package checks

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// OrchestratorAgent is the delegation path named when a strict mismatch blocks.
const OrchestratorAgent = "phase-orchestrator"

func isDelegation(c *Context) bool {
	return c.Event.Kind == types.ActionTask && c.Event.Target.SubagentType != ""
}

// authorize classifies the delegation in c against the ownership table.
func authorize(own config.Ownership, agent, currentPhase string) (string, config.Owner) {
	owner, ok := own.Lookup(agent)
	if !ok {
		return types.DelegationUnknown, config.Owner{}
	}
	switch owner.Phase {
	case config.PhaseAll, config.PhaseSetup, currentPhase:
		return types.DelegationAuthorized, owner
	}
	return types.DelegationUnauthorized, owner
}

// PhaseAuthorization blocks, in strict mode, a delegation to an agent owned
// by a phase other than the current one.
func PhaseAuthorization(c *Context) (Result, error) {
	if !isDelegation(c) || c.State.ActiveWorkflow == nil {
		return Allow, nil
	}
	mode := c.State.EnforcementMode()
	phase := c.State.ActivePhase()
	agent := c.Event.Target.SubagentType

	own, err := c.Ownership()
	if err != nil {
		if mode == types.ModeStrict && errors.Is(err, types.ErrConfigMissing) {
			return missingConfig(c, err, "phase authorization unavailable"), nil
		}
		return Allow, err
	}

	status, owner := authorize(own, agent, phase)
	if status != types.DelegationUnauthorized {
		return Allow, nil
	}
	c.logger().Info("phase mismatch",
		zap.String("agent", agent),
		zap.String("agent_phase", owner.Phase),
		zap.String("current_phase", phase),
		zap.String("mode", mode))

	if mode != types.ModeStrict {
		return Allow, nil
	}
	return blocked(fmt.Sprintf(
		"agent %q belongs to phase %q but the current phase is %q. "+
			"Delegate through %s, which advances phases in order, instead of invoking %s directly.",
		agent, owner.Phase, phase, OrchestratorAgent, agent)), nil
}
