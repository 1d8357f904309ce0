package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newBacklogShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show an item's analysis record with its derived status",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			rec, err := a.engine().LoadRecord(slug)
			if err != nil {
				return recordErr(slug, err)
			}
			return a.emit(cmd, rec, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s\n", slug, rec.Description)
				fmt.Fprintf(w, "  status:   %s\n", rec.AnalysisStatus)
				fmt.Fprintf(w, "  source:   %s\n", rec.Source)
				fmt.Fprintf(w, "  phases:   %s\n", joinOrDash(rec.PhasesCompleted))
				if rec.SizingDecision != nil {
					fmt.Fprintf(w, "  sizing:   %s\n", rec.SizingDecision.Intensity)
				}
				fmt.Fprintf(w, "  rounds:   %d\n", len(rec.Elaborations))
			})
		},
	}
}
