// Intercepted runtime events and the decisions returned for them.
package types

// Action kinds the engine inspects. Other kinds pass through every check.
const (
	ActionTask  = "Task"
	ActionBash  = "Bash"
	ActionWrite = "Write"
	ActionEdit  = "Edit"
)

// Event is one intercepted action, parsed once per invocation.
type Event struct {
	HookEvent string       `json:"hook_event_name,omitempty"`
	Kind      string       `json:"action_kind"`
	Target    ActionTarget `json:"action_target"`
	Result    ActionResult `json:"action_result"`
}

// ActionTarget holds whichever target fields the action kind carries.
type ActionTarget struct {
	SubagentType string `json:"subagent_type,omitempty"`
	Description  string `json:"description,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Command      string `json:"command,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// ActionResult is the textual outcome of a completed action.
type ActionResult struct {
	Output   string `json:"output,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Present  bool   `json:"-"`
}

// Intent returns the text a delegation expresses: its description and prompt.
func (e Event) Intent() string {
	if e.Target.Description == "" {
		return e.Target.Prompt
	}
	if e.Target.Prompt == "" {
		return e.Target.Description
	}
	return e.Target.Description + "\n" + e.Target.Prompt
}

// Decision values.
const (
	DecisionBlock = "block"
)

// Decision is written to the primary channel when a pre-action check blocks.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Block returns a block decision carrying reason.
func Block(reason string) *Decision {
	return &Decision{Decision: DecisionBlock, Reason: reason}
}
