package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// LoadState reads the workflow-state document at path. A missing file
// returns types.ErrNoState; unparseable JSON returns types.ErrMalformed.
func LoadState(path string) (*types.WorkflowState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrNoState, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var s types.WorkflowState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrMalformed, path, err)
	}
	return &s, nil
}

// SaveState prunes the bounded arrays to limits and writes s to path.
func SaveState(path string, s *types.WorkflowState, limits types.Limits) error {
	Prune(s, limits)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// Prune evicts the oldest entries of the history, skill usage log, and
// workflow history beyond their bounds. Non-positive bounds fall back to
// the defaults.
func Prune(s *types.WorkflowState, limits types.Limits) {
	def := types.DefaultLimits()
	if limits.History <= 0 {
		limits.History = def.History
	}
	if limits.SkillUsageLog <= 0 {
		limits.SkillUsageLog = def.SkillUsageLog
	}
	if limits.WorkflowHistory <= 0 {
		limits.WorkflowHistory = def.WorkflowHistory
	}
	s.History = keepLast(s.History, limits.History)
	s.SkillUsageLog = keepLast(s.SkillUsageLog, limits.SkillUsageLog)
	s.WorkflowHistory = keepLast(s.WorkflowHistory, limits.WorkflowHistory)
}

func keepLast[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return append([]T(nil), items[len(items)-n:]...)
}
