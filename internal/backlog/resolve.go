package backlog

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/classify"
	"github.com/mesh-intelligence/phasegate/internal/sqlite"
	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Resolution strategies, in the order they are tried.
const (
	StrategyExactSlug   = "exact-slug"
	StrategyPartialSlug = "partial-slug"
	StrategyItemNumber  = "item-number"
	StrategySourceID    = "source-id"
	StrategyFuzzy       = "fuzzy"
)

var itemNumberRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Resolution is the single item a reference resolved to.
type Resolution struct {
	Item     sqlite.Item `json:"item"`
	Strategy string      `json:"strategy"`
}

// AmbiguousError carries the candidates of a fuzzy search that matched more
// than one item. It matches types.ErrAmbiguous.
type AmbiguousError struct {
	Input      string
	Candidates []sqlite.Item
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.Slug
	}
	return fmt.Sprintf("%v: %q matches %s", types.ErrAmbiguous, e.Input, strings.Join(names, ", "))
}

// Is reports whether target is types.ErrAmbiguous.
func (e *AmbiguousError) Is(target error) bool {
	return target == types.ErrAmbiguous
}

type strategy struct {
	name  string
	query func(ix *sqlite.Index, input string) ([]sqlite.Item, error)
}

func strategies(pref *Preference) []strategy {
	return []strategy{
		{StrategyExactSlug, func(ix *sqlite.Index, in string) ([]sqlite.Item, error) {
			return ix.BySlug(strings.ToLower(in))
		}},
		{StrategyPartialSlug, func(ix *sqlite.Index, in string) ([]sqlite.Item, error) {
			if classify.SourceRefs.Classify(in) != classify.FreeText {
				return nil, nil
			}
			s := Slug(in)
			if s == FallbackSlug {
				return nil, nil
			}
			return ix.BySlugPartial(s)
		}},
		{StrategyItemNumber, func(ix *sqlite.Index, in string) ([]sqlite.Item, error) {
			if !itemNumberRe.MatchString(in) {
				return nil, nil
			}
			return ix.ByNumber(in)
		}},
		{StrategySourceID, func(ix *sqlite.Index, in string) ([]sqlite.Item, error) {
			ref := DetectSource(in, pref)
			if ref.SourceID == nil {
				return nil, nil
			}
			return ix.BySourceID(*ref.SourceID)
		}},
		{StrategyFuzzy, func(ix *sqlite.Index, in string) ([]sqlite.Item, error) {
			return ix.Fuzzy(in)
		}},
	}
}

// Resolve runs the strategies against ix. The first strategy with exactly
// one match wins. Numbers and tracker references skip the partial slug
// match, which would otherwise catch them as fragments of other slugs.
// Several fuzzy matches return an *AmbiguousError; nothing at all returns
// types.ErrNotFound.
func Resolve(ix *sqlite.Index, input string, pref *Preference) (Resolution, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolution{}, types.ErrEmptyInput
	}
	for _, s := range strategies(pref) {
		items, err := s.query(ix, input)
		if err != nil {
			return Resolution{}, fmt.Errorf("%s: %w", s.name, err)
		}
		if len(items) == 1 {
			return Resolution{Item: items[0], Strategy: s.name}, nil
		}
		if s.name == StrategyFuzzy && len(items) > 1 {
			return Resolution{}, &AmbiguousError{Input: input, Candidates: items}
		}
	}
	return Resolution{}, fmt.Errorf("%w: %q", types.ErrNotFound, input)
}

// ResolveItem loads the project's records and backlog index into a fresh
// index and resolves input against it.
func (e *Engine) ResolveItem(input string, pref *Preference) (Resolution, error) {
	ix, err := sqlite.Open()
	if err != nil {
		return Resolution{}, err
	}
	defer ix.Close()

	records, err := e.indexRecords()
	if err != nil {
		return Resolution{}, err
	}
	lines, err := store.ReadIndex(e.BacklogPath())
	if err != nil {
		return Resolution{}, err
	}
	entries := make([]sqlite.BacklogEntry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, sqlite.BacklogEntry{
			Number:      l.Number,
			Description: l.Description,
			Slug:        Slug(l.Description),
			Status:      l.Status(),
		})
	}
	if err := ix.Load(records, entries); err != nil {
		return Resolution{}, err
	}
	return Resolve(ix, input, pref)
}

func (e *Engine) indexRecords() ([]sqlite.Record, error) {
	slugs, err := store.ListRecords(e.RequirementsDir())
	if err != nil {
		return nil, err
	}
	records := make([]sqlite.Record, 0, len(slugs))
	for _, slug := range slugs {
		rec, err := e.LoadRecord(slug)
		if err != nil {
			e.logger.Debug("skipping unreadable record", zap.String("slug", slug), zap.Error(err))
			continue
		}
		r := sqlite.Record{
			Slug:        slug,
			Description: rec.Description,
			Source:      rec.Source,
			Status:      rec.AnalysisStatus,
		}
		if rec.SourceID != nil {
			r.SourceID = *rec.SourceID
		}
		records = append(records, r)
	}
	return records, nil
}
