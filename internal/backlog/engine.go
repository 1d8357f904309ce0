package backlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Revisions reports the code revision and what changed since a revision.
// *vcs.Repo satisfies it.
type Revisions interface {
	Head(ctx context.Context) (string, error)
	ChangedSince(ctx context.Context, rev string) ([]string, error)
}

// Engine operates on the analysis records and backlog index of one project.
type Engine struct {
	layout    paths.Layout
	cfg       types.Config
	logger    *zap.Logger
	revisions Revisions
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRevisions sets the revision source. Without one, staleness always
// falls back.
func WithRevisions(r Revisions) Option {
	return func(e *Engine) { e.revisions = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine for layout.
func NewEngine(layout paths.Layout, cfg types.Config, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{layout: layout, cfg: cfg, logger: logger.Named("backlog"), now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// RequirementsDir is the directory holding one folder per item.
func (e *Engine) RequirementsDir() string {
	return e.layout.Rel(e.cfg.RequirementsDir)
}

// BacklogPath is the backlog index document.
func (e *Engine) BacklogPath() string {
	return e.layout.Rel(e.cfg.BacklogFile)
}

func (e *Engine) recordPath(slug string) string {
	return store.RecordPath(e.RequirementsDir(), slug)
}

// LoadRecord reads the record of slug with its status derived.
func (e *Engine) LoadRecord(slug string) (*types.AnalysisRecord, error) {
	rec, err := store.LoadRecord(e.recordPath(slug))
	if err != nil {
		return nil, err
	}
	rec.AnalysisStatus = DeriveAnalysisStatus(rec.PhasesCompleted, rec.SizingDecision)
	return rec, nil
}

func (e *Engine) saveRecord(slug string, rec *types.AnalysisRecord) error {
	rec.AnalysisStatus = DeriveAnalysisStatus(rec.PhasesCompleted, rec.SizingDecision)
	return store.SaveRecord(e.recordPath(slug), rec)
}

// CreateRecord starts a raw record for input and returns its slug. The
// description of a tracker reference is the reference itself until a
// caller supplies a better one. An existing record is returned unchanged.
func (e *Engine) CreateRecord(ctx context.Context, input string, pref *Preference) (string, *types.AnalysisRecord, error) {
	ref := DetectSource(input, pref)
	if ref.Description == "" {
		return "", nil, types.ErrEmptyInput
	}
	slug := Slug(ref.Description)
	if existing, err := e.LoadRecord(slug); err == nil {
		return slug, existing, nil
	} else if !errors.Is(err, types.ErrNoRecord) {
		return "", nil, err
	}

	rec := &types.AnalysisRecord{
		SchemaVersion: types.CurrentRecordVersion,
		Description:   ref.Description,
		Source:        ref.Source,
		SourceID:      ref.SourceID,
		CreatedAt:     types.Timestamp(e.now()),
		CodebaseHash:  e.head(ctx),
	}
	if err := e.saveRecord(slug, rec); err != nil {
		return "", nil, err
	}
	return slug, rec, nil
}

// CompletePhase records phase as completed for slug. Only the next phase of
// the canonical sequence may be added; a completed phase is a no-op. The
// codebase hash is refreshed so staleness is measured from this point.
func (e *Engine) CompletePhase(ctx context.Context, slug, phase string) (*types.AnalysisRecord, error) {
	if !types.IsAnalysisPhase(phase) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownPhase, phase)
	}
	rec, err := e.LoadRecord(slug)
	if err != nil {
		return nil, err
	}
	valid, dropped := ValidatePhaseSequence(rec.PhasesCompleted)
	if len(dropped) > 0 {
		e.logger.Warn("dropping non-contiguous analysis phases", zap.String("slug", slug), zap.Strings("dropped", dropped))
	}
	for _, p := range valid {
		if p == phase {
			rec.PhasesCompleted = valid
			return rec, nil
		}
	}
	if len(valid) == len(types.AnalysisPhases) || types.AnalysisPhases[len(valid)] != phase {
		return nil, fmt.Errorf("%w: %s after %v", types.ErrPhaseGap, phase, valid)
	}
	rec.PhasesCompleted = append(valid, phase)
	if hash := e.head(ctx); hash != "" {
		rec.CodebaseHash = hash
	}
	if err := e.saveRecord(slug, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetSizing records a sizing decision for slug.
func (e *Engine) SetSizing(slug string, d *types.SizingDecision) (*types.AnalysisRecord, error) {
	rec, err := e.LoadRecord(slug)
	if err != nil {
		return nil, err
	}
	rec.SizingDecision = d
	if err := e.saveRecord(slug, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AddElaboration appends a discussion round to slug's record.
func (e *Engine) AddElaboration(slug, topic, summary string) (*types.Elaboration, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, types.ErrEmptyInput
	}
	rec, err := e.LoadRecord(slug)
	if err != nil {
		return nil, err
	}
	el := types.Elaboration{
		ID:        types.NewID(),
		Round:     len(rec.Elaborations) + 1,
		Topic:     topic,
		Summary:   strings.TrimSpace(summary),
		CreatedAt: e.now().UTC(),
	}
	rec.Elaborations = append(rec.Elaborations, el)
	if err := e.saveRecord(slug, rec); err != nil {
		return nil, err
	}
	return &el, nil
}

// Resume computes the start point of slug against the configured workflow.
func (e *Engine) Resume(slug string) (StartPoint, error) {
	rec, err := e.LoadRecord(slug)
	if err != nil {
		return StartPoint{}, err
	}
	return ComputeStartPhase(rec.PhasesCompleted, rec.SizingDecision, e.cfg.WorkflowPhases, e.logger), nil
}

// Stale decides whether slug's analysis is out of date. Identical revisions
// are fresh; otherwise the impact analysis's blast radius is compared with
// the changed files. Any failure along the way yields the fallback verdict.
func (e *Engine) Stale(ctx context.Context, slug string) (Staleness, error) {
	rec, err := e.LoadRecord(slug)
	if err != nil {
		return Staleness{}, err
	}
	if e.revisions == nil {
		return Fallback("revision control unavailable"), nil
	}
	current, err := e.revisions.Head(ctx)
	if err != nil {
		e.logger.Debug("reading HEAD failed", zap.Error(err))
		return Fallback("revision control unavailable"), nil
	}
	if rec.CodebaseHash == current {
		return CompareRevisions(rec.CodebaseHash, current), nil
	}
	if rec.CodebaseHash == "" {
		s := Fallback("no recorded revision")
		s.CurrentHash = current
		return s, nil
	}

	withHashes := func(s Staleness) Staleness {
		s.RecordedHash, s.CurrentHash = rec.CodebaseHash, current
		return s
	}
	doc, err := os.ReadFile(filepath.Join(e.RequirementsDir(), slug, paths.ImpactAnalysisFileName))
	if err != nil {
		return withHashes(Fallback("no usable blast radius: impact analysis missing")), nil
	}
	affected, err := ParseAffectedFiles(string(doc))
	if err != nil {
		return withHashes(Fallback("no usable blast radius")), nil
	}
	changed, err := e.revisions.ChangedSince(ctx, rec.CodebaseHash)
	if err != nil {
		e.logger.Debug("listing changed files failed", zap.Error(err))
		return withHashes(Fallback("changed files unavailable")), nil
	}
	return withHashes(AssessBlastRadius(affected, changed)), nil
}

// RecommendTier applies the configured thresholds.
func (e *Engine) RecommendTier(fileCount int, risk string) TierRecommendation {
	return ComputeRecommendedTier(fileCount, risk, e.cfg.TierThresholds, e.logger)
}

// AddItem appends description to the backlog index and creates its record.
func (e *Engine) AddItem(ctx context.Context, description string, pref *Preference) (store.IndexLine, string, error) {
	slug, rec, err := e.CreateRecord(ctx, description, pref)
	if err != nil {
		return store.IndexLine{}, "", err
	}
	line, err := store.AppendItem(e.BacklogPath(), rec.Description)
	if err != nil {
		return store.IndexLine{}, "", err
	}
	return line, slug, nil
}

// SyncMarker rewrites the index marker of number from slug's derived status.
func (e *Engine) SyncMarker(number, slug string) (rune, error) {
	rec, err := e.LoadRecord(slug)
	if err != nil {
		return 0, err
	}
	marker, err := store.MarkerForStatus(rec.AnalysisStatus)
	if err != nil {
		return 0, err
	}
	return marker, store.UpdateMarker(e.BacklogPath(), number, marker)
}

func (e *Engine) head(ctx context.Context) string {
	if e.revisions == nil {
		return ""
	}
	hash, err := e.revisions.Head(ctx)
	if err != nil {
		e.logger.Debug("reading HEAD failed", zap.Error(err))
		return ""
	}
	return hash
}
