package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newBacklogResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <slug>",
		Short: "Print the phase analysis or the workflow resumes at",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			sp, err := a.engine().Resume(slug)
			if err != nil {
				return recordErr(slug, err)
			}
			return a.emit(cmd, sp, func(w io.Writer) {
				fmt.Fprintf(w, "status:      %s\n", sp.Status)
				fmt.Fprintf(w, "start phase: %s\n", sp.StartPhase)
				fmt.Fprintf(w, "completed:   %s\n", joinOrDash(sp.PhasesCompleted))
				if len(sp.Dropped) > 0 {
					fmt.Fprintf(w, "dropped:     %s\n", joinOrDash(sp.Dropped))
				}
			})
		},
	}
}
