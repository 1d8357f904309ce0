package backlog

import (
	"strings"

	"github.com/mesh-intelligence/phasegate/internal/classify"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Preference routes bare numbers to a tracker. Jira needs a ProjectKey;
// GitHub needs nothing else.
type Preference struct {
	Tracker    string
	ProjectKey string
}

// DetectSource classifies input as a GitHub reference (#42), a Jira key
// (PROJ-42), or free text. A bare number routes to the preferred tracker
// when the preference is complete and is free text otherwise.
func DetectSource(input string, pref *Preference) types.SourceRef {
	text := strings.TrimSpace(input)
	ref := types.SourceRef{Source: types.SourceManual, Description: text}

	m := classify.SourceRefs.Evaluate(classify.Input{Text: text})
	switch m.Verdict {
	case classify.GitHubRef:
		ref.Source = types.SourceGitHub
		ref.SourceID = strPtr("GH-" + m.Groups[1])
	case classify.JiraRef:
		ref.Source = types.SourceJira
		ref.SourceID = strPtr(text)
	case classify.BareNumber:
		if pref == nil {
			break
		}
		switch pref.Tracker {
		case types.SourceGitHub:
			ref.Source = types.SourceGitHub
			ref.SourceID = strPtr("GH-" + text)
		case types.SourceJira:
			if key := strings.ToUpper(strings.TrimSpace(pref.ProjectKey)); key != "" {
				ref.Source = types.SourceJira
				ref.SourceID = strPtr(key + "-" + text)
			}
		}
	}
	return ref
}

func strPtr(s string) *string { return &s }
