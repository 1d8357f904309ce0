package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/internal/config"
)

// starterRequirements is written to iteration-requirements.json when absent.
const starterRequirements = `{
  // Phases that must iterate tests to green and pass the policy gate.
  "constitution_path": "docs/constitution.md",
  "phase_requirements": {
    "06-implementation": {
      "test_iteration": {"enabled": true, "max_iterations": 10, "circuit_breaker_threshold": 3},
      "constitutional_validation": {"enabled": true, "articles": []}
    }
  }
}
`

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the phasegate configuration directory",
		Long:  "Create .phasegate/config with a default phasegate.yaml and a starter iteration-requirements.json.\nExisting files are left alone.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a)
		},
	}
}

func runInit(cmd *cobra.Command, a *app) error {
	wroteConfig, err := config.EnsureDefaultFile(a.layout)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.layout.AgentsDir(), 0o755); err != nil {
		return fmt.Errorf("create agents directory: %w", err)
	}
	wroteReq, err := writeIfMissing(a.layout.IterationRequirementsPath(), starterRequirements)
	if err != nil {
		return fmt.Errorf("write iteration requirements: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "phasegate initialized")
	fmt.Fprintln(out, "  config:      ", a.layout.ConfigDir(), created(wroteConfig))
	fmt.Fprintln(out, "  requirements:", a.layout.IterationRequirementsPath(), created(wroteReq))
	fmt.Fprintln(out, "  state:       ", a.layout.StatePath())
	return nil
}

func writeIfMissing(path, content string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, os.WriteFile(path, []byte(content), 0o644)
}

func created(wrote bool) string {
	if wrote {
		return "(created)"
	}
	return "(exists)"
}
