package checks

import (
	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// DelegationLogger appends the delegation to skill_usage_log and history.
// It is the post-task writer and runs whether or not a workflow is active.
func DelegationLogger(c *Context) (Result, error) {
	if !isDelegation(c) {
		return Allow, nil
	}
	agent := c.Event.Target.SubagentType
	phase := c.State.ActivePhase()

	status, owner := types.DelegationUnknown, config.Owner{}
	if own, err := c.Ownership(); err == nil {
		status, owner = authorize(own, agent, phase)
	}

	ts := types.Timestamp(c.Now)
	c.State.SkillUsageLog = append(c.State.SkillUsageLog, types.SkillUsageEntry{
		Timestamp:       ts,
		Agent:           agent,
		AgentPhase:      owner.Phase,
		CurrentPhase:    phase,
		Status:          status,
		EnforcementMode: c.State.EnforcementMode(),
	})
	c.State.History = append(c.State.History, types.HistoryEntry{
		Timestamp: ts,
		Agent:     agent,
		Action:    "delegated: " + status,
	})
	return Result{Modified: true}, nil
}
