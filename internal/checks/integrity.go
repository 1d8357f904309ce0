package checks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// integrityRule reports a violation for one phase, or "".
type integrityRule struct {
	name  string
	check func(ps *types.PhaseState) string
}

var integrityRules = []integrityRule{
	{"completed-iteration-without-runs", func(ps *types.PhaseState) string {
		it := ps.TestIteration()
		if it != nil && it.Completed && it.CurrentIteration < 1 {
			return "test iteration is completed but current_iteration is 0"
		}
		return ""
	}},
	{"completed-gate-without-iterations", func(ps *types.PhaseState) string {
		g := ps.ConstitutionalValidation
		if g != nil && g.Completed && g.IterationsUsed < 1 {
			return "constitutional validation is completed but iterations_used is 0"
		}
		return ""
	}},
	{"compliant-gate-without-iterations", func(ps *types.PhaseState) string {
		g := ps.ConstitutionalValidation
		if g != nil && g.Status == types.GateCompliant && g.IterationsUsed == 0 {
			return "constitutional validation is compliant without any iteration"
		}
		return ""
	}},
	{"success-without-pass", func(ps *types.PhaseState) string {
		it := ps.TestIteration()
		if it == nil || it.Status != types.IterationSuccess {
			return ""
		}
		for _, a := range it.History {
			if a.Result == types.ResultPassed {
				return ""
			}
		}
		return "test iteration is success but its history has no PASSED run"
	}},
	{"iteration-over-ceiling", func(ps *types.PhaseState) string {
		it := ps.TestIteration()
		if it != nil && it.MaxIterations > 0 && it.CurrentIteration > it.MaxIterations {
			return fmt.Sprintf("current_iteration %d exceeds max_iterations %d", it.CurrentIteration, it.MaxIterations)
		}
		return ""
	}},
}

// IsStateDocument reports whether path names a workflow-state document.
func IsStateDocument(path string) bool {
	p := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, g := range paths.StateDocumentGlobs {
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
		if ok, _ := doublestar.Match(strings.TrimPrefix(g, "**/"), p); ok {
			return true
		}
	}
	return false
}

// writtenStatePath returns the absolute path of the state document the
// event wrote, if any.
func writtenStatePath(c *Context) (string, bool) {
	ev := c.Event
	if ev.Kind != types.ActionWrite && ev.Kind != types.ActionEdit {
		return "", false
	}
	if ev.Target.FilePath == "" || !IsStateDocument(ev.Target.FilePath) {
		return "", false
	}
	return c.Layout.Rel(ev.Target.FilePath), true
}

// IntegrityValidator re-reads a just-written state document and reports
// logically impossible records. It never blocks or rewrites.
func IntegrityValidator(c *Context) (Result, error) {
	path, ok := writtenStatePath(c)
	if !ok {
		return Allow, nil
	}
	s, err := store.LoadState(path)
	if err != nil {
		return Allow, err
	}
	var res Result
	for _, id := range s.PhaseIDs() {
		ps := s.Phases[id]
		if ps == nil {
			continue
		}
		for _, rule := range integrityRules {
			if msg := rule.check(ps); msg != "" {
				res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("integrity: phase %q: %s [%s]", id, msg, rule.name))
			}
		}
	}
	return res, nil
}
