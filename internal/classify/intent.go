package classify

import "regexp"

// Intent verdicts.
const (
	CompletionIntent Verdict = "completion"
	SetupIntent      Verdict = "setup"
	NoIntent         Verdict = "none"
)

// CompletionIntents recognizes delegations that try to close out a phase.
var CompletionIntents = RuleSet{
	Name: "completion-intent",
	Rules: []Rule{
		{Name: "complete-phase", Pattern: regexp.MustCompile(`(?i)\b(complete|completing|finish|finishing|finali[sz]e|close out|wrap up|mark)\b.{0,40}\bphase\b`), Verdict: CompletionIntent},
		{Name: "phase-complete", Pattern: regexp.MustCompile(`(?i)\bphase\b.{0,40}\b(complete|completed|done|finished)\b`), Verdict: CompletionIntent},
		{Name: "advance", Pattern: regexp.MustCompile(`(?i)\b(advance|move|proceed|transition)\s+to\s+(the\s+)?next\s+phase\b`), Verdict: CompletionIntent},
		{Name: "gate", Pattern: regexp.MustCompile(`(?i)\b(pass|passing|run|check)\s+(the\s+)?(phase\s+)?gate\b`), Verdict: CompletionIntent},
	},
	Default: NoIntent,
}

// SetupIntents recognizes setup and configuration delegations, which are
// never subject to the policy gate.
var SetupIntents = RuleSet{
	Name: "setup-exemption",
	Rules: []Rule{
		{Name: "discover", Pattern: regexp.MustCompile(`(?i)\b(discover|discovery|project\s+analysis)\b`), Verdict: SetupIntent},
		{Name: "initialize", Pattern: regexp.MustCompile(`(?i)\b(init|initiali[sz]e|install|scaffold|set\s*up|bootstrap)\b`), Verdict: SetupIntent},
		{Name: "configure", Pattern: regexp.MustCompile(`(?i)\b(configure|configuration|constitution\s+(creation|setup|draft))\b`), Verdict: SetupIntent},
	},
	Default: NoIntent,
}

// IsCompletionIntent reports whether text declares a phase complete and is
// not a setup or configuration task.
func IsCompletionIntent(text string) bool {
	if SetupIntents.Classify(text) == SetupIntent {
		return false
	}
	return CompletionIntents.Classify(text) == CompletionIntent
}
