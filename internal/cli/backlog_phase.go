package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newBacklogCompletePhaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-phase <slug> <phase>",
		Short: "Record an analysis phase as completed",
		Long: `Complete-phase appends phase to the item's completed analysis phases. Only
the next phase of 00-quick-scan, 01-requirements, 02-impact-analysis,
03-architecture, 04-design may be added.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, phase := args[0], args[1]
			rec, err := a.engine().CompletePhase(cmd.Context(), slug, phase)
			switch {
			case errors.Is(err, types.ErrUnknownPhase), errors.Is(err, types.ErrPhaseGap):
				return userError{err}
			case err != nil:
				return recordErr(slug, err)
			}
			return a.emit(cmd, rec, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s (%s)\n", slug, rec.AnalysisStatus, joinOrDash(rec.PhasesCompleted))
			})
		},
	}
}
