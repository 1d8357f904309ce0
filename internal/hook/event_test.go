package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want types.Event
	}{
		{
			name: "engine fields",
			in:   `{"action_kind":"Task","action_target":{"subagent_type":"architect","description":"design"}}`,
			want: types.Event{Kind: "Task", Target: types.ActionTarget{SubagentType: "architect", Description: "design"}},
		},
		{
			name: "runtime aliases with shell response",
			in:   `{"hook_event_name":"PostToolUse","tool_name":"Bash","tool_input":{"command":"go test ./..."},"tool_response":{"stdout":"ok","stderr":"warn","exit_code":0}}`,
			want: types.Event{
				HookEvent: "PostToolUse",
				Kind:      "Bash",
				Target:    types.ActionTarget{Command: "go test ./..."},
				Result:    types.ActionResult{Output: "ok\nwarn", ExitCode: intPtr(0), Present: true},
			},
		},
		{
			name: "string result",
			in:   `{"action_kind":"Bash","action_target":{"command":"npm test"},"action_result":"3 passed"}`,
			want: types.Event{Kind: "Bash", Target: types.ActionTarget{Command: "npm test"}, Result: types.ActionResult{Output: "3 passed", Present: true}},
		},
		{
			name: "camel-case exit code",
			in:   `{"tool_name":"Bash","tool_input":{"command":"npm test"},"tool_response":{"output":"boom","exitCode":1}}`,
			want: types.Event{Kind: "Bash", Target: types.ActionTarget{Command: "npm test"}, Result: types.ActionResult{Output: "boom", ExitCode: intPtr(1), Present: true}},
		},
		{
			name: "null result is absent",
			in:   `{"action_kind":"Write","action_target":{"file_path":"a.go"},"action_result":null}`,
			want: types.Event{Kind: "Write", Target: types.ActionTarget{FilePath: "a.go"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEventErrors(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, types.ErrMalformed)

	_, err = ParseEvent([]byte(`{"action_target":{}}`))
	assert.ErrorIs(t, err, ErrNoAction)

	_, err = ParseEvent([]byte(`{"action_kind":"Task","action_target":"oops"}`))
	assert.ErrorIs(t, err, types.ErrMalformed)
}

func intPtr(v int) *int { return &v }
