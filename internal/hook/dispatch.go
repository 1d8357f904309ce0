package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/checks"
	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Category selects a dispatch table.
type Category string

// Event categories.
const (
	PreTask   Category = "pre-task"
	PostTask  Category = "post-task"
	PostBash  Category = "post-bash"
	PostWrite Category = "post-write"
)

// Categories lists the categories in dispatch order.
func Categories() []Category {
	return []Category{PreTask, PostTask, PostBash, PostWrite}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown event category %q (valid: pre-task, post-task, post-bash, post-write)", s)
}

// entry is one row of a dispatch table.
type entry struct {
	name    string
	applies func(types.Event) bool
	run     checks.Func
}

func kindIs(kinds ...string) func(types.Event) bool {
	return func(ev types.Event) bool {
		for _, k := range kinds {
			if ev.Kind == k {
				return true
			}
		}
		return false
	}
}

// tables holds the ordered checks per category. Pre-task stops at the first
// block; post-action categories run every entry.
var tables = map[Category][]entry{
	PreTask: {
		{"phase-authorization", kindIs(types.ActionTask), checks.PhaseAuthorization},
		{"iteration-gate", kindIs(types.ActionTask), checks.IterationGate},
		{"policy-gate", kindIs(types.ActionTask), checks.PolicyGate},
	},
	PostTask: {
		{"delegation-logger", kindIs(types.ActionTask), checks.DelegationLogger},
	},
	PostBash: {
		{"iteration-control", kindIs(types.ActionBash), checks.IterationControl},
	},
	PostWrite: {
		{"integrity-validator", kindIs(types.ActionWrite, types.ActionEdit), checks.IntegrityValidator},
		{"completion-remediator", kindIs(types.ActionWrite, types.ActionEdit), checks.CompletionRemediator},
	},
}

// Outcome is what one dispatch produced.
type Outcome struct {
	Decision    *types.Decision
	Diagnostics []string
	Ran         []string
}

// Dispatcher runs the checks of one category against one event.
type Dispatcher struct {
	Layout paths.Layout
	Config types.Config
	Logger *zap.Logger
	Now    func() time.Time
}

// Dispatch parses data, loads the state document, and runs the category's
// table. Parse failures and a missing state document yield an empty Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cat Category, data []byte) Outcome {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("category", string(cat)))

	ev, err := ParseEvent(data)
	if err != nil {
		logger.Debug("ignoring event", zap.Error(err))
		return Outcome{}
	}
	statePath := d.Layout.StatePath()
	state, err := store.LoadState(statePath)
	if err != nil {
		logger.Debug("no usable state document", zap.String("path", statePath), zap.Error(err))
		return Outcome{}
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	c := &checks.Context{
		Ctx:       ctx,
		Event:     ev,
		State:     state,
		StatePath: statePath,
		Layout:    d.Layout,
		Config:    d.Config,
		Logger:    logger,
		Now:       now().UTC(),
	}

	var out Outcome
	modified := false
	for _, e := range tables[cat] {
		if !e.applies(ev) {
			continue
		}
		res, _ := checks.Guard(e.name, e.run)(c)
		out.Ran = append(out.Ran, e.name)
		out.Diagnostics = append(out.Diagnostics, res.Diagnostics...)
		modified = modified || res.Modified
		if res.Decision != nil && cat == PreTask {
			out.Decision = res.Decision
			logger.Info("blocked", zap.String("check", e.name), zap.String("kind", ev.Kind))
			break
		}
	}

	if modified {
		if err := store.SaveState(statePath, state, d.Config.Limits); err != nil {
			logger.Debug("state write failed", zap.Error(err))
		}
	}
	return out
}

// Run dispatches the event read from in and writes the block decision to
// stdout and diagnostics to stderr. It only returns write errors.
func (d *Dispatcher) Run(ctx context.Context, cat Category, in io.Reader, stdout, stderr io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Debug("reading event", zap.Error(err))
		}
		return nil
	}
	out := d.Dispatch(ctx, cat, data)
	for _, diag := range out.Diagnostics {
		if _, err := fmt.Fprintln(stderr, diag); err != nil {
			return err
		}
	}
	if out.Decision == nil {
		return nil
	}
	return json.NewEncoder(stdout).Encode(out.Decision)
}
