package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newBacklogStaleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stale <slug>",
		Short: "Check whether an item's analysis predates relevant code changes",
		Long: `Stale compares the revision recorded in the item's record with HEAD. When
they differ, the files changed since then are intersected with the
"Directly Affected Files" table of the item's impact-analysis.md:
no overlap is fresh, 1-3 files is info, 4 or more is a warning.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			s, err := a.engine().Stale(cmd.Context(), slug)
			if err != nil {
				return recordErr(slug, err)
			}
			return a.emit(cmd, s, func(w io.Writer) {
				fmt.Fprintf(w, "stale:    %t\n", s.Stale)
				fmt.Fprintf(w, "severity: %s\n", s.Severity)
				if s.Reason != "" {
					fmt.Fprintf(w, "reason:   %s\n", s.Reason)
				}
				if len(s.Overlapping) > 0 {
					fmt.Fprintf(w, "files:    %s\n", joinOrDash(s.Overlapping))
				}
			})
		},
	}
}
