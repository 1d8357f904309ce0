package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// legacyRecord holds the single-flag fields written before schema version 2.
type legacyRecord struct {
	PhaseACompleted *bool    `json:"phase_a_completed"`
	PhaseASteps     []string `json:"phase_a_steps"`
}

// RecordPath returns the meta.json path of slug under requirementsDir.
func RecordPath(requirementsDir, slug string) string {
	return filepath.Join(requirementsDir, slug, paths.RecordFileName)
}

// LoadRecord reads the analysis record at path, migrating legacy fields and
// applying defaults. Analysis status is left for the caller to derive.
func LoadRecord(path string) (*types.AnalysisRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrNoRecord, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return DecodeRecord(data)
}

// DecodeRecord parses a record document and upgrades it to the current
// schema version.
func DecodeRecord(data []byte) (*types.AnalysisRecord, error) {
	var rec types.AnalysisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: analysis record: %v", types.ErrMalformed, err)
	}
	if rec.SchemaVersion < types.CurrentRecordVersion {
		var legacy legacyRecord
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: analysis record: %v", types.ErrMalformed, err)
		}
		migrateRecord(&rec, legacy)
	}
	ApplyRecordDefaults(&rec)
	return &rec, nil
}

// migrateRecord maps the legacy single flag onto the multi-phase fields.
// The legacy fields are not part of AnalysisRecord, so they are never
// written back.
func migrateRecord(rec *types.AnalysisRecord, legacy legacyRecord) {
	if len(rec.PhasesCompleted) == 0 && legacy.PhaseACompleted != nil && *legacy.PhaseACompleted {
		rec.PhasesCompleted = append([]string(nil), types.AnalysisPhases...)
	}
	if len(rec.StepsCompleted) == 0 && len(legacy.PhaseASteps) > 0 {
		rec.StepsCompleted = append([]string(nil), legacy.PhaseASteps...)
	}
	rec.SchemaVersion = types.CurrentRecordVersion
}

// ApplyRecordDefaults fills omitted optional fields.
func ApplyRecordDefaults(rec *types.AnalysisRecord) {
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = types.CurrentRecordVersion
	}
	if rec.Source == "" {
		rec.Source = types.SourceManual
	}
	if rec.AnalysisStatus == "" {
		rec.AnalysisStatus = types.AnalysisRaw
	}
	if rec.PhasesCompleted == nil {
		rec.PhasesCompleted = []string{}
	}
	if rec.StepsCompleted == nil {
		rec.StepsCompleted = []string{}
	}
	if rec.DepthOverrides == nil {
		rec.DepthOverrides = map[string]string{}
	}
	if rec.Elaborations == nil {
		rec.Elaborations = []types.Elaboration{}
	}
}

// SaveRecord writes rec to path at the current schema version.
func SaveRecord(path string, rec *types.AnalysisRecord) error {
	ApplyRecordDefaults(rec)
	rec.SchemaVersion = types.CurrentRecordVersion
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// ListRecords returns the slugs under requirementsDir that hold a meta.json.
func ListRecords(requirementsDir string) ([]string, error) {
	entries, err := os.ReadDir(requirementsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", requirementsDir, err)
	}
	var slugs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(RecordPath(requirementsDir, e.Name())); err == nil {
			slugs = append(slugs, e.Name())
		}
	}
	return slugs, nil
}
