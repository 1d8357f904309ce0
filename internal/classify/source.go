package classify

import (
	"regexp"
)

// Source reference verdicts.
const (
	GitHubRef  Verdict = "github"
	JiraRef    Verdict = "jira"
	BareNumber Verdict = "bare-number"
	FreeText   Verdict = "manual"
)

// SourceRefs classifies a trimmed work-item token. Explicit tracker syntax
// is matched before the bare number.
var SourceRefs = RuleSet{
	Name: "source-reference",
	Rules: []Rule{
		{Name: "github-issue", Pattern: regexp.MustCompile(`^#(\d+)$`), Verdict: GitHubRef},
		{Name: "jira-key", Pattern: regexp.MustCompile(`^([A-Z][A-Z0-9]*)-(\d+)$`), Verdict: JiraRef},
		{Name: "bare-number", Pattern: regexp.MustCompile(`^(\d+)$`), Verdict: BareNumber},
	},
	Default: FreeText,
}
