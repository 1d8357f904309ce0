// Package hook parses intercepted runtime events and dispatches them to the
// enforcement checks.
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// ErrNoAction is returned for an event without an action kind.
var ErrNoAction = errors.New("event has no action kind")

// rawEvent accepts the engine's field names and the hook runtime's aliases.
type rawEvent struct {
	HookEvent    string          `json:"hook_event_name"`
	ActionKind   string          `json:"action_kind"`
	ToolName     string          `json:"tool_name"`
	ActionTarget json.RawMessage `json:"action_target"`
	ToolInput    json.RawMessage `json:"tool_input"`
	ActionResult json.RawMessage `json:"action_result"`
	ToolResponse json.RawMessage `json:"tool_response"`
}

// rawResult covers the result shapes runtimes send: engine output, shell
// stdout/stderr, and either exit-code spelling.
type rawResult struct {
	Output     string `json:"output"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   *int   `json:"exit_code"`
	ExitCodeJS *int   `json:"exitCode"`
}

// ParseEvent decodes one serialized event.
func ParseEvent(data []byte) (types.Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.Event{}, fmt.Errorf("%w: event: %v", types.ErrMalformed, err)
	}
	ev := types.Event{HookEvent: raw.HookEvent, Kind: first(raw.ActionKind, raw.ToolName)}
	if ev.Kind == "" {
		return ev, ErrNoAction
	}
	if target := firstRaw(raw.ActionTarget, raw.ToolInput); target != nil {
		if err := json.Unmarshal(target, &ev.Target); err != nil {
			return ev, fmt.Errorf("%w: action target: %v", types.ErrMalformed, err)
		}
	}
	if result := firstRaw(raw.ActionResult, raw.ToolResponse); result != nil {
		res, err := parseResult(result)
		if err != nil {
			return ev, err
		}
		ev.Result = res
	}
	return ev, nil
}

func parseResult(data []byte) (types.ActionResult, error) {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return types.ActionResult{Output: text, Present: true}, nil
	}
	var r rawResult
	if err := json.Unmarshal(data, &r); err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: action result: %v", types.ErrMalformed, err)
	}
	out := r.Output
	if out == "" {
		out = strings.TrimRight(strings.Join([]string{r.Stdout, r.Stderr}, "\n"), "\n")
	}
	code := r.ExitCode
	if code == nil {
		code = r.ExitCodeJS
	}
	return types.ActionResult{Output: out, ExitCode: code, Present: true}, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v
		}
	}
	return nil
}
