// Package cli implements the phasegate command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/internal/logging"
	"github.com/mesh-intelligence/phasegate/internal/paths"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	projectDir string
	logLevel   string
	jsonMode   bool
}

// app is the per-invocation environment built before a subcommand runs.
type app struct {
	flags  rootFlags
	layout paths.Layout
	cfg    types.Config
	logger *zap.Logger
}

// userError marks errors caused by bad input (exit code 1).
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func userErr(format string, args ...any) error {
	return userError{fmt.Errorf(format, args...)}
}

// NewRootCmd creates the top-level "phasegate" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "phasegate",
		Short: "Workflow enforcement for phased development",
		Long: "phasegate intercepts actions of an automation runtime, checks them against\n" +
			"phase ownership, test iteration limits, and policy gates, and tracks\n" +
			"backlog analysis progress.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = logging.Sync(a.logger)
			}
		},
	}

	root.PersistentFlags().StringVar(&a.flags.projectDir, "project-dir", "", "project root (default: $PHASEGATE_PROJECT_DIR or the working directory)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default: from phasegate.yaml)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newHookCmd(a))
	root.AddCommand(newBacklogCmd(a))
	root.AddCommand(newGateCmd(a))

	return root
}

// setup resolves the project layout, configuration, and logger. Hook
// commands never fail here: a broken configuration degrades to defaults.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	lenient := isHookCmd(cmd)

	root, err := paths.ResolveProjectDir(a.flags.projectDir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}
	a.layout, err = paths.NewLayout(root)
	if err != nil && !lenient {
		return userError{err}
	}

	a.cfg, err = config.Load(a.layout)
	if err != nil {
		if !lenient {
			return userError{err}
		}
		a.cfg = types.DefaultConfig()
	}

	level := a.cfg.LogLevel
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	a.logger, err = logging.NewWithSink(level, zapSink(cmd.ErrOrStderr()))
	if err != nil {
		if !lenient {
			return userError{err}
		}
		a.logger = zap.NewNop()
	}
	return nil
}

func isHookCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == hookCmdName {
			return true
		}
	}
	return false
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Stderr))
}

func run(root *cobra.Command, stderr io.Writer) int {
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "phasegate:", err)
	var ue userError
	if errors.As(err, &ue) || isUsageError(err) {
		return exitUserError
	}
	return exitSysError
}
