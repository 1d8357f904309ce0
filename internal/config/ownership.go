package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Ownership phases that authorize a delegation regardless of current phase.
const (
	PhaseAll   = "all"
	PhaseSetup = "setup"
)

// Owner is the declared phase of one agent.
type Owner struct {
	AgentID string   `json:"agent_id,omitempty"`
	Phase   string   `json:"phase"`
	Skills  []string `json:"skills,omitempty"`
}

// Ownership maps agent names to their owners.
type Ownership map[string]Owner

type manifest struct {
	Ownership Ownership `json:"ownership"`
}

// agentFrontMatter is the YAML header of an agent definition file.
type agentFrontMatter struct {
	Name  string `yaml:"name"`
	Phase string `yaml:"phase"`
}

// Lookup returns the owner of name.
func (o Ownership) Lookup(name string) (Owner, bool) {
	owner, ok := o[name]
	return owner, ok
}

// LoadOwnership reads the skills manifest and adds agents declared only in
// agent definition files. Manifest entries win. A missing manifest with no
// agent files returns types.ErrConfigMissing.
func LoadOwnership(layout paths.Layout) (Ownership, error) {
	own := Ownership{}
	data, err := os.ReadFile(layout.SkillsManifestPath())
	missing := errors.Is(err, os.ErrNotExist)
	switch {
	case missing:
	case err != nil:
		return nil, fmt.Errorf("reading skills manifest: %w", err)
	default:
		var m manifest
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, fmt.Errorf("%w: skills manifest: %v", types.ErrMalformed, err)
		}
		for name, owner := range m.Ownership {
			own[name] = owner
		}
	}

	found, err := addAgentDefinitions(own, layout.AgentsDir())
	if err != nil {
		return nil, err
	}
	if missing && found == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrConfigMissing, layout.SkillsManifestPath())
	}
	return own, nil
}

// addAgentDefinitions scans dir for *.md files with a name and phase in
// their frontmatter. Files without usable frontmatter are skipped.
func addAgentDefinitions(own Ownership, dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return 0, fmt.Errorf("listing agent definitions: %w", err)
	}
	found := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fm, ok := parseFrontMatter(data)
		if !ok || fm.Phase == "" {
			continue
		}
		name := fm.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), ".md")
		}
		found++
		if _, exists := own[name]; exists {
			continue
		}
		own[name] = Owner{AgentID: name, Phase: fm.Phase}
	}
	return found, nil
}

func parseFrontMatter(content []byte) (agentFrontMatter, bool) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return agentFrontMatter{}, false
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---"), 2)
	if len(parts) < 2 {
		return agentFrontMatter{}, false
	}
	var fm agentFrontMatter
	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return agentFrontMatter{}, false
	}
	return fm, true
}
