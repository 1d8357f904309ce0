package backlog

import (
	"bufio"
	"errors"
	"path"
	"regexp"
	"strings"
)

// Staleness severities.
const (
	SeverityNone     = "none"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityFallback = "fallback"
)

// warningOverlap is the overlap count at which staleness becomes a warning.
const warningOverlap = 4

// ErrNoBlastRadius is returned when an analysis document has no usable
// directly-affected-files table.
var ErrNoBlastRadius = errors.New("no directly affected files table")

// Staleness is the verdict on whether recorded analysis still matches the code.
type Staleness struct {
	Stale        bool     `json:"stale"`
	Severity     string   `json:"severity"`
	Reason       string   `json:"reason,omitempty"`
	RecordedHash string   `json:"recorded_hash,omitempty"`
	CurrentHash  string   `json:"current_hash,omitempty"`
	Overlapping  []string `json:"overlapping_files,omitempty"`
}

// CompareRevisions is the simple check: identical markers are not stale.
func CompareRevisions(recorded, current string) Staleness {
	s := Staleness{RecordedHash: recorded, CurrentHash: current}
	if recorded != "" && recorded == current {
		s.Severity = SeverityNone
		return s
	}
	s.Stale = true
	s.Severity = SeverityFallback
	s.Reason = "revision changed since analysis"
	return s
}

// Fallback is the conservative verdict used when the blast radius cannot be
// assessed.
func Fallback(reason string) Staleness {
	return Staleness{Stale: true, Severity: SeverityFallback, Reason: reason}
}

// AssessBlastRadius intersects the files an analysis declared as directly
// affected with the files changed since. No overlap is not stale; one to
// three files is informational; four or more is a warning.
func AssessBlastRadius(affected, changed []string) Staleness {
	if len(affected) == 0 {
		return Fallback("no usable blast radius")
	}
	want := make(map[string]bool, len(affected))
	for _, f := range affected {
		want[normalizePath(f)] = true
	}
	var overlap []string
	seen := map[string]bool{}
	for _, f := range changed {
		n := normalizePath(f)
		if want[n] && !seen[n] {
			seen[n] = true
			overlap = append(overlap, n)
		}
	}
	s := Staleness{Overlapping: overlap}
	switch {
	case len(overlap) == 0:
		s.Severity = SeverityNone
	case len(overlap) < warningOverlap:
		s.Stale = true
		s.Severity = SeverityInfo
		s.Reason = "some directly affected files changed"
	default:
		s.Stale = true
		s.Severity = SeverityWarning
		s.Reason = "many directly affected files changed"
	}
	return s
}

var (
	affectedHeadingRe = regexp.MustCompile(`(?i)^#{1,6}\s+.*directly\s+affected\s+files`)
	anyHeadingRe      = regexp.MustCompile(`^#{1,6}\s`)
	separatorRowRe    = regexp.MustCompile(`^\|?\s*:?-{3,}`)
)

// ParseAffectedFiles extracts the first column of the table under the
// "Directly Affected Files" heading of an impact analysis document.
func ParseAffectedFiles(doc string) ([]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(doc))
	inSection, inTable, header := false, false, true
	var files []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inSection {
			inSection = affectedHeadingRe.MatchString(line)
			continue
		}
		if anyHeadingRe.MatchString(line) {
			break
		}
		if !strings.HasPrefix(line, "|") {
			if inTable {
				break
			}
			continue
		}
		inTable = true
		if header {
			header = false
			continue
		}
		if separatorRowRe.MatchString(line) {
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		file := strings.Trim(strings.TrimSpace(cells[0]), "`*")
		if file != "" {
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		return nil, ErrNoBlastRadius
	}
	return files, nil
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	return strings.TrimPrefix(path.Clean(p), "./")
}
