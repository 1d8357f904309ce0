package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/config"
	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newGateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Inspect and advance a phase's policy gate",
		Long: `Gate records constitutional validation passes for a phase and the human
approval an escalated gate needs before the phase can complete.`,
	}
	cmd.AddCommand(newGateShowCmd(a))
	cmd.AddCommand(newGateRecordCmd(a))
	cmd.AddCommand(newGateApproveCmd(a))
	return cmd
}

// gateEdit loads the state document, hands the phase's gate to fn, and
// saves the result. A missing gate is initialized from the requirements.
func (a *app) gateEdit(phase string, fn func(g *types.PolicyGateState) error) (*types.PolicyGateState, error) {
	path := a.layout.StatePath()
	s, err := store.LoadState(path)
	if err != nil {
		if errors.Is(err, types.ErrNoState) {
			return nil, userErr("no workflow state at %s", path)
		}
		return nil, err
	}
	ps := s.EnsurePhase(phase)
	if ps.ConstitutionalValidation == nil {
		req, err := config.LoadRequirements(a.layout.IterationRequirementsPath())
		if err != nil {
			return nil, userError{err}
		}
		rule, ok := req.PolicyGate(phase)
		if !ok {
			return nil, userErr("phase %q has no policy gate", phase)
		}
		ps.ConstitutionalValidation = types.NewPolicyGate(rule.Articles, rule.MaxIterations)
	}
	g := ps.ConstitutionalValidation
	if err := fn(g); err != nil {
		if errors.Is(err, types.ErrInvalidTransition) {
			return nil, userErr("policy gate of %q is %s: %v", phase, g.Status, err)
		}
		if errors.Is(err, types.ErrArticlesUnchecked) {
			return nil, userError{err}
		}
		return nil, err
	}
	s.History = append(s.History, types.HistoryEntry{
		Timestamp: types.Timestamp(time.Now()),
		Action:    fmt.Sprintf("policy gate %s: %s after %d iterations", phase, g.Status, g.IterationsUsed),
	})
	if err := store.SaveState(path, s, a.cfg.Limits); err != nil {
		return nil, err
	}
	a.logger.Info("policy gate updated", zap.String("phase", phase), zap.String("status", g.Status))
	return g, nil
}

func (a *app) printGate(cmd *cobra.Command, phase string, g *types.PolicyGateState) error {
	return a.emit(cmd, g, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s (%d of %d iterations used)\n", phase, g.Status, g.IterationsUsed, g.MaxIterations)
		fmt.Fprintf(w, "  required:  %s\n", joinOrDash(g.ArticlesRequired))
		fmt.Fprintf(w, "  checked:   %s\n", joinOrDash(g.ArticlesChecked))
		if g.Status == types.GateEscalated {
			approved := g.EscalationApproved != nil && *g.EscalationApproved
			fmt.Fprintf(w, "  approved:  %t\n", approved)
		}
	})
}

func newGateShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <phase>",
		Short: "Show the policy gate of a phase",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := args[0]
			s, err := store.LoadState(a.layout.StatePath())
			if err != nil {
				if errors.Is(err, types.ErrNoState) {
					return userErr("no workflow state at %s", a.layout.StatePath())
				}
				return err
			}
			g := s.Phase(phase).PolicyGate()
			if g == nil {
				return userErr("phase %q has no policy gate record", phase)
			}
			return a.printGate(cmd, phase, g)
		},
	}
}

func newGateRecordCmd(a *app) *cobra.Command {
	var (
		articles  []string
		compliant bool
	)
	cmd := &cobra.Command{
		Use:   "record <phase>",
		Short: "Record one validation pass over the phase's articles",
		Long: `Record counts one validation pass. With --compliant the gate completes,
provided every required article has been checked by this or an earlier
pass. A gate that runs out of iterations escalates and needs approval.

Example:
  phasegate gate record 06-implementation --articles I,IV --compliant`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := args[0]
			g, err := a.gateEdit(phase, func(g *types.PolicyGateState) error {
				return g.RecordIteration(articles, compliant)
			})
			if err != nil {
				return err
			}
			return a.printGate(cmd, phase, g)
		},
	}
	cmd.Flags().StringSliceVar(&articles, "articles", nil, "articles checked in this pass")
	cmd.Flags().BoolVar(&compliant, "compliant", false, "the phase complies with every required article")
	return cmd
}

func newGateApproveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <phase>",
		Short: "Approve an escalated policy gate",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := args[0]
			g, err := a.gateEdit(phase, func(g *types.PolicyGateState) error {
				return g.Approve()
			})
			if err != nil {
				return err
			}
			return a.printGate(cmd, phase, g)
		},
	}
}
