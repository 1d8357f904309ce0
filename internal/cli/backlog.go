package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/backlog"
	"github.com/mesh-intelligence/phasegate/internal/vcs"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// backlogFlags are shared by the backlog subcommands.
type backlogFlags struct {
	tracker    string
	projectKey string
}

func newBacklogCmd(a *app) *cobra.Command {
	bf := &backlogFlags{}
	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Track backlog items and their analysis progress",
	}
	cmd.PersistentFlags().StringVar(&bf.tracker, "tracker", "", "tracker bare numbers refer to (github or jira)")
	cmd.PersistentFlags().StringVar(&bf.projectKey, "project-key", "", "jira project key for bare numbers")

	cmd.AddCommand(newBacklogSlugCmd(a))
	cmd.AddCommand(newBacklogSourceCmd(a, bf))
	cmd.AddCommand(newBacklogAddCmd(a, bf))
	cmd.AddCommand(newBacklogShowCmd(a))
	cmd.AddCommand(newBacklogResumeCmd(a))
	cmd.AddCommand(newBacklogStaleCmd(a))
	cmd.AddCommand(newBacklogTierCmd(a))
	cmd.AddCommand(newBacklogResolveCmd(a, bf))
	cmd.AddCommand(newBacklogCompletePhaseCmd(a))
	cmd.AddCommand(newBacklogSizeCmd(a))
	cmd.AddCommand(newBacklogMarkCmd(a))
	cmd.AddCommand(newBacklogElaborateCmd(a))
	return cmd
}

func (bf *backlogFlags) preference() *backlog.Preference {
	if bf.tracker == "" {
		return nil
	}
	return &backlog.Preference{Tracker: bf.tracker, ProjectKey: bf.projectKey}
}

// engine builds a backlog engine. A project outside a git repository gets
// no revision source, so staleness falls back.
func (a *app) engine() *backlog.Engine {
	var opts []backlog.Option
	repo, err := vcs.Open(a.layout.Root)
	switch {
	case err == nil:
		opts = append(opts, backlog.WithRevisions(repo))
	case errors.Is(err, vcs.ErrNotRepository):
		a.logger.Debug("no git repository", zap.String("root", a.layout.Root))
	default:
		a.logger.Warn("opening git repository", zap.Error(err))
	}
	return backlog.NewEngine(a.layout, a.cfg, a.logger, opts...)
}

// recordErr turns a missing record into a user error.
func recordErr(slug string, err error) error {
	if errors.Is(err, types.ErrNoRecord) {
		return userErr("no analysis record for %q", slug)
	}
	return err
}
