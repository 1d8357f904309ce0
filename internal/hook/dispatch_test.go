package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/phasegate/internal/logging"
	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

const requirementsDoc = `{
  // implementation must iterate tests and pass the policy gate
  "phase_requirements": {
    "06-implementation": {
      "test_iteration": {"enabled": true},
      "constitutional_validation": {"enabled": true, "articles": ["I", "II"]}
    }
  }
}`

const manifestDoc = `{"ownership": {
  "requirements-analyst": {"phase": "01-requirements"},
  "software-developer": {"phase": "06-implementation"}
}}`

func newDispatcher(t *testing.T, mode string) (*Dispatcher, paths.Layout) {
	t.Helper()
	layout := paths.Layout{Root: t.TempDir()}
	require.NoError(t, os.MkdirAll(layout.ConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(layout.IterationRequirementsPath(), []byte(requirementsDoc), 0o644))
	require.NoError(t, os.WriteFile(layout.SkillsManifestPath(), []byte(manifestDoc), 0o644))

	state := &types.WorkflowState{
		CurrentPhase:     "06-implementation",
		ActiveWorkflow:   &types.ActiveWorkflow{Type: "feature", Phases: []string{"01-requirements", "06-implementation"}, CurrentPhaseIndex: 1},
		SkillEnforcement: &types.SkillEnforcement{Enabled: true, Mode: mode},
	}
	require.NoError(t, store.SaveState(layout.StatePath(), state, types.DefaultLimits()))

	return &Dispatcher{
		Layout: layout,
		Config: types.DefaultConfig(),
		Logger: logging.NewTestLogger().Logger,
		Now:    func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}, layout
}

func loadState(t *testing.T, layout paths.Layout) *types.WorkflowState {
	t.Helper()
	s, err := store.LoadState(layout.StatePath())
	require.NoError(t, err)
	return s
}

func TestDispatchPreTaskFirstBlockWins(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeStrict)
	ev := `{"tool_name":"Task","tool_input":{"subagent_type":"requirements-analyst","description":"complete phase 06-implementation"}}`

	out := d.Dispatch(context.Background(), PreTask, []byte(ev))
	require.NotNil(t, out.Decision)
	assert.Equal(t, []string{"phase-authorization"}, out.Ran)
	assert.Nil(t, loadState(t, layout).Phase("06-implementation"), "no gate record on an authorization block")
}

func TestDispatchPreTaskPolicyGateWrites(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeWarn)
	passed := `{"action_kind":"Bash","action_target":{"command":"go test ./..."},"action_result":{"output":"ok  \tapp\t0.1s","exit_code":0}}`
	d.Dispatch(context.Background(), PostBash, []byte(passed))

	ev := `{"action_kind":"Task","action_target":{"subagent_type":"software-developer","description":"Complete phase 06-implementation"}}`
	out := d.Dispatch(context.Background(), PreTask, []byte(ev))
	require.NotNil(t, out.Decision)
	assert.Equal(t, []string{"phase-authorization", "iteration-gate", "policy-gate"}, out.Ran)
	assert.Contains(t, out.Decision.Reason, "I, II")

	gate := loadState(t, layout).Phase("06-implementation").ConstitutionalValidation
	require.NotNil(t, gate)
	assert.Equal(t, types.GatePending, gate.Status)
}

func TestDispatchPostBashPersists(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeStrict)
	ev := `{"action_kind":"Bash","action_target":{"command":"go test ./..."},"action_result":{"output":"--- FAIL: TestX\nFAIL","exit_code":1}}`

	out := d.Dispatch(context.Background(), PostBash, []byte(ev))
	assert.Nil(t, out.Decision)
	require.NotEmpty(t, out.Diagnostics)

	it := loadState(t, layout).Phase("06-implementation").TestIteration()
	require.NotNil(t, it)
	assert.Equal(t, 1, it.CurrentIteration)
	assert.Equal(t, types.IterationActive, it.Status)
}

func TestDispatchPostTaskLogs(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeWarn)
	ev := `{"action_kind":"Task","action_target":{"subagent_type":"requirements-analyst"}}`

	out := d.Dispatch(context.Background(), PostTask, []byte(ev))
	assert.Nil(t, out.Decision)

	s := loadState(t, layout)
	require.Len(t, s.SkillUsageLog, 1)
	assert.Equal(t, types.DelegationUnauthorized, s.SkillUsageLog[0].Status)
}

func TestDispatchNonApplicableIsNoOp(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeStrict)
	before, err := os.ReadFile(layout.StatePath())
	require.NoError(t, err)

	for _, cat := range Categories() {
		out := d.Dispatch(context.Background(), cat, []byte(`{"action_kind":"Read","action_target":{"file_path":"x"}}`))
		assert.Equal(t, Outcome{}, out, cat)
	}
	after, err := os.ReadFile(layout.StatePath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDispatchSilentAllow(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeStrict)
	assert.Equal(t, Outcome{}, d.Dispatch(context.Background(), PreTask, []byte(`{broken`)))

	require.NoError(t, os.Remove(layout.StatePath()))
	ev := `{"action_kind":"Task","action_target":{"subagent_type":"requirements-analyst"}}`
	assert.Equal(t, Outcome{}, d.Dispatch(context.Background(), PreTask, []byte(ev)))

	require.NoError(t, os.WriteFile(layout.StatePath(), []byte(`{"phases": [`), 0o644))
	assert.Equal(t, Outcome{}, d.Dispatch(context.Background(), PreTask, []byte(ev)))
}

func TestDispatchPostWriteRunsAll(t *testing.T) {
	d, layout := newDispatcher(t, types.ModeStrict)
	ev, err := json.Marshal(map[string]any{
		"action_kind":   "Write",
		"action_target": map[string]string{"file_path": filepath.Join(layout.Root, ".phasegate", "state.json")},
	})
	require.NoError(t, err)

	out := d.Dispatch(context.Background(), PostWrite, ev)
	assert.Equal(t, []string{"integrity-validator", "completion-remediator"}, out.Ran)
}

func TestRunWritesChannels(t *testing.T) {
	d, _ := newDispatcher(t, types.ModeStrict)
	var stdout, stderr bytes.Buffer

	in := strings.NewReader(`{"action_kind":"Task","action_target":{"subagent_type":"requirements-analyst"}}`)
	require.NoError(t, d.Run(context.Background(), PreTask, in, &stdout, &stderr))
	var dec types.Decision
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &dec))
	assert.Equal(t, "block", dec.Decision)
	assert.Empty(t, stderr.String())

	stdout.Reset()
	in = strings.NewReader(`{"action_kind":"Bash","action_target":{"command":"go test ./..."},"action_result":{"output":"FAIL","exit_code":1}}`)
	require.NoError(t, d.Run(context.Background(), PostBash, in, &stdout, &stderr))
	assert.Empty(t, stdout.String(), "post-action output never reaches stdout")
	assert.Contains(t, stderr.String(), "tests failed")
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("post-bash")
	require.NoError(t, err)
	assert.Equal(t, PostBash, c)
	_, err = ParseCategory("pre-bash")
	assert.Error(t, err)
}
