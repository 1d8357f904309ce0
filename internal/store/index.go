package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Backlog markers.
const (
	MarkerRaw      = ' '
	MarkerPartial  = '~'
	MarkerAnalyzed = 'A'
	MarkerDone     = 'x'
)

// StatusDone is the status of a finished item. It has no analysis record
// equivalent.
const StatusDone = "done"

var indexLineRe = regexp.MustCompile(`^\s*- (\d+(?:\.\d+)?) \[(.)\] (.*)$`)

// IndexLine is one item of the backlog index.
type IndexLine struct {
	Number      string
	Marker      rune
	Description string
}

// Status returns the status the marker encodes.
func (l IndexLine) Status() string {
	s, _ := StatusForMarker(l.Marker)
	return s
}

// String formats the line as `- <number> [<marker>] <description>`.
func (l IndexLine) String() string {
	return fmt.Sprintf("- %s [%c] %s", l.Number, l.Marker, l.Description)
}

// ParseIndexLine parses one backlog index line.
func ParseIndexLine(line string) (IndexLine, error) {
	m := indexLineRe.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return IndexLine{}, types.ErrInvalidLine
	}
	marker := []rune(m[2])[0]
	if _, err := StatusForMarker(marker); err != nil {
		return IndexLine{}, err
	}
	return IndexLine{Number: m[1], Marker: marker, Description: strings.TrimSpace(m[3])}, nil
}

// MarkerForStatus maps an analysis status (or StatusDone) to its marker.
func MarkerForStatus(status string) (rune, error) {
	switch status {
	case types.AnalysisRaw:
		return MarkerRaw, nil
	case types.AnalysisPartial:
		return MarkerPartial, nil
	case types.AnalysisAnalyzed:
		return MarkerAnalyzed, nil
	case StatusDone:
		return MarkerDone, nil
	}
	return 0, fmt.Errorf("%w: status %q", types.ErrInvalidMarker, status)
}

// StatusForMarker maps a marker to its status.
func StatusForMarker(marker rune) (string, error) {
	switch marker {
	case MarkerRaw:
		return types.AnalysisRaw, nil
	case MarkerPartial:
		return types.AnalysisPartial, nil
	case MarkerAnalyzed:
		return types.AnalysisAnalyzed, nil
	case MarkerDone:
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %q", types.ErrInvalidMarker, marker)
}

// ReadIndex returns the item lines of the backlog index at path. Other
// lines (headings, prose) are ignored. A missing file is an empty index.
func ReadIndex(path string) ([]IndexLine, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var lines []IndexLine
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if l, err := ParseIndexLine(scanner.Text()); err == nil {
			lines = append(lines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// UpdateMarker rewrites the marker of item number in place. Returns
// types.ErrNotFound when no line carries that number.
func UpdateMarker(path, number string, marker rune) error {
	if _, err := StatusForMarker(marker); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	lines := strings.Split(string(data), "\n")
	found := false
	for i, raw := range lines {
		l, err := ParseIndexLine(raw)
		if err != nil || l.Number != number {
			continue
		}
		indent := raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
		l.Marker = marker
		lines[i] = indent + l.String()
		found = true
		break
	}
	if !found {
		return fmt.Errorf("%w: item %s", types.ErrNotFound, number)
	}
	return writeFileAtomic(path, []byte(strings.Join(lines, "\n")))
}

// AppendItem adds description as a raw item with the next free top-level
// number and returns the new line.
func AppendItem(path, description string) (IndexLine, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return IndexLine{}, types.ErrEmptyInput
	}
	existing, err := ReadIndex(path)
	if err != nil {
		return IndexLine{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return IndexLine{}, fmt.Errorf("reading %s: %w", path, err)
	}

	line := IndexLine{Number: strconv.Itoa(nextNumber(existing)), Marker: MarkerRaw, Description: description}
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	data = append(data, []byte(line.String()+"\n")...)
	if err := writeFileAtomic(path, data); err != nil {
		return IndexLine{}, err
	}
	return line, nil
}

func nextNumber(lines []IndexLine) int {
	max := 0
	for _, l := range lines {
		head, _, _ := strings.Cut(l.Number, ".")
		if n, err := strconv.Atoi(head); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}
