// Package checks holds the enforcement checks run for intercepted events.
// Each check receives one Context built for the invocation and returns a
// Result; pre-action checks may block, post-action checks only report.
package checks

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Context is everything a check may consult. It is built once per event and
// never shared across invocations.
type Context struct {
	Ctx       context.Context
	Event     types.Event
	State     *types.WorkflowState
	StatePath string
	Layout    paths.Layout
	Config    types.Config
	Logger    *zap.Logger
	Now       time.Time

	requirements    *config.Requirements
	requirementsErr error
	requirementsSet bool
	ownership       config.Ownership
	ownershipErr    error
	ownershipSet    bool
}

// Requirements loads iteration-requirements.json on first use.
func (c *Context) Requirements() (*config.Requirements, error) {
	if !c.requirementsSet {
		c.requirements, c.requirementsErr = config.LoadRequirements(c.Layout.IterationRequirementsPath())
		c.requirementsSet = true
	}
	return c.requirements, c.requirementsErr
}

// SetRequirements injects a requirements document.
func (c *Context) SetRequirements(r *config.Requirements, err error) {
	c.requirements, c.requirementsErr, c.requirementsSet = r, err, true
}

// Ownership loads the agent ownership table on first use.
func (c *Context) Ownership() (config.Ownership, error) {
	if !c.ownershipSet {
		c.ownership, c.ownershipErr = config.LoadOwnership(c.Layout)
		c.ownershipSet = true
	}
	return c.ownership, c.ownershipErr
}

// SetOwnership injects an ownership table.
func (c *Context) SetOwnership(o config.Ownership, err error) {
	c.ownership, c.ownershipErr, c.ownershipSet = o, err, true
}

func (c *Context) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Result is a check's outcome. Modified asks the dispatcher to persist the
// state snapshot.
type Result struct {
	Decision    *types.Decision
	Diagnostics []string
	Modified    bool
}

// Allow is the empty result.
var Allow = Result{}

func blocked(reason string) Result {
	return Result{Decision: types.Block(reason)}
}

func diagnostic(format string, args ...any) Result {
	return Result{Diagnostics: []string{fmt.Sprintf(format, args...)}}
}

// Func is the signature every check implements.
type Func func(c *Context) (Result, error)

// Guard wraps fn so an error or a panic becomes Allow, logged at debug.
func Guard(name string, fn Func) Func {
	return func(c *Context) (res Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				c.logger().Debug("check panicked", zap.String("check", name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				res, err = Allow, nil
			}
		}()
		res, err = fn(c)
		if err != nil {
			c.logger().Debug("check failed", zap.String("check", name), zap.Error(err))
			return Allow, nil
		}
		return res, nil
	}
}

// missingConfig decides what a check does when a configuration document
// cannot be read: allow when fail-open, block with reason otherwise.
func missingConfig(c *Context, err error, reason string) Result {
	if c.Config.FailOpen {
		c.logger().Debug("configuration unavailable, allowing", zap.Error(err))
		return Allow
	}
	return blocked(fmt.Sprintf("%s: %v", reason, err))
}
