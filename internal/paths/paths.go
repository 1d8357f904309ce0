// Package paths resolves the project root and the locations of the workflow
// state, configuration documents, and backlog files inside it.
package paths

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Project-relative directory and file names.
const (
	DefaultStateDirName    = ".phasegate"
	StateFileName          = "state.json"
	MonorepoFileName       = "monorepo.json"
	ProjectsDirName        = "projects"
	ConfigDirName          = "config"
	AgentsDirName          = "agents"
	EngineConfigName       = "phasegate"
	EngineConfigType       = "yaml"
	IterationRequirements  = "iteration-requirements.json"
	SkillsManifest         = "skills-manifest.json"
	ImpactAnalysisFileName = "impact-analysis.md"
	RecordFileName         = "meta.json"
)

// Environment variable names for overrides.
const (
	EnvProjectDir = "PHASEGATE_PROJECT_DIR"
	EnvProjectID  = "PHASEGATE_PROJECT"
)

// StateDocumentGlobs match the workflow-state document for single-project
// and monorepo layouts, relative or absolute.
var StateDocumentGlobs = []string{
	"**/" + DefaultStateDirName + "/" + StateFileName,
	"**/" + DefaultStateDirName + "/" + ProjectsDirName + "/*/" + StateFileName,
}

// workingDir is overridden in tests.
var workingDir = os.Getwd

// ResolveProjectDir returns the project root following the precedence chain:
// flag > PHASEGATE_PROJECT_DIR env > current working directory.
func ResolveProjectDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvProjectDir); env != "" {
		return filepath.Abs(env)
	}
	return workingDir()
}

// Layout locates documents for one project, or one sub-project of a
// monorepo when ProjectID is set.
type Layout struct {
	Root      string
	ProjectID string
}

// monorepoFile is the shape of .phasegate/monorepo.json.
type monorepoFile struct {
	DefaultProject string                     `json:"default_project"`
	Projects       map[string]json.RawMessage `json:"projects"`
}

// ErrUnknownProject is returned when the selected project id is not listed
// in monorepo.json.
var ErrUnknownProject = errors.New("project not listed in monorepo.json")

// NewLayout builds the layout for root. The sub-project is chosen by
// PHASEGATE_PROJECT, then by monorepo.json's default_project. A root without
// monorepo.json is a single project.
func NewLayout(root string) (Layout, error) {
	l := Layout{Root: root}
	data, err := os.ReadFile(filepath.Join(root, DefaultStateDirName, MonorepoFileName))
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return l, fmt.Errorf("reading monorepo.json: %w", err)
	}
	var m monorepoFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return l, fmt.Errorf("parsing monorepo.json: %w", err)
	}
	id := os.Getenv(EnvProjectID)
	if id == "" {
		id = m.DefaultProject
	}
	if id == "" {
		return l, nil
	}
	if _, ok := m.Projects[id]; !ok {
		return l, fmt.Errorf("%w: %s", ErrUnknownProject, id)
	}
	l.ProjectID = id
	return l, nil
}

// StateDir is the directory holding the shared engine documents.
func (l Layout) StateDir() string {
	return filepath.Join(l.Root, DefaultStateDirName)
}

// StatePath is the workflow-state document for the selected project.
func (l Layout) StatePath() string {
	if l.ProjectID != "" {
		return filepath.Join(l.StateDir(), ProjectsDirName, l.ProjectID, StateFileName)
	}
	return filepath.Join(l.StateDir(), StateFileName)
}

// ConfigDir holds phasegate.yaml and the JSON configuration documents.
func (l Layout) ConfigDir() string {
	return filepath.Join(l.StateDir(), ConfigDirName)
}

// IterationRequirementsPath is the per-phase requirements document.
func (l Layout) IterationRequirementsPath() string {
	return filepath.Join(l.ConfigDir(), IterationRequirements)
}

// SkillsManifestPath is the agent ownership document.
func (l Layout) SkillsManifestPath() string {
	return filepath.Join(l.ConfigDir(), SkillsManifest)
}

// AgentsDir holds agent definition files with YAML frontmatter.
func (l Layout) AgentsDir() string {
	return filepath.Join(l.StateDir(), AgentsDirName)
}

// Rel resolves a project-relative path; absolute paths pass through.
func (l Layout) Rel(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.Root, p)
}
