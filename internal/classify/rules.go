// Package classify turns free text into verdicts with ordered rule sets.
// The first matching rule wins; when none match, the set's explicit default
// applies.
package classify

import "regexp"

// Verdict is the outcome of a classification.
type Verdict string

// Input is what a rule inspects: text and, for process results, the exit code.
type Input struct {
	Text     string
	ExitCode *int
}

// Rule matches when Pattern (if set) matches the text and Guard (if set)
// returns true.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Guard   func(Input) bool
	Verdict Verdict
}

// RuleSet is an ordered list of rules with a default.
type RuleSet struct {
	Name    string
	Rules   []Rule
	Default Verdict
}

// Match is the result of evaluating a rule set. Rule is empty when the
// default applied. Groups holds the pattern's submatches.
type Match struct {
	Verdict Verdict
	Rule    string
	Groups  []string
}

// Evaluate returns the first matching rule's verdict, or the default.
func (rs RuleSet) Evaluate(in Input) Match {
	for _, r := range rs.Rules {
		var groups []string
		if r.Pattern != nil {
			groups = r.Pattern.FindStringSubmatch(in.Text)
			if groups == nil {
				continue
			}
		}
		if r.Guard != nil && !r.Guard(in) {
			continue
		}
		return Match{Verdict: r.Verdict, Rule: r.Name, Groups: groups}
	}
	return Match{Verdict: rs.Default}
}

// Classify evaluates text alone.
func (rs RuleSet) Classify(text string) Verdict {
	return rs.Evaluate(Input{Text: text}).Verdict
}
