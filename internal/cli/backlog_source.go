package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/internal/backlog"
)

func newBacklogSourceCmd(a *app, bf *backlogFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "source <reference>...",
		Short: "Detect the tracker a reference points to",
		Long: `Source classifies a reference: #42 is a GitHub issue, PROJ-42 a Jira key,
anything else free text. With --tracker, a bare number routes to that tracker.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := backlog.DetectSource(strings.Join(args, " "), bf.preference())
			return a.emit(cmd, ref, func(w io.Writer) {
				id := "-"
				if ref.SourceID != nil {
					id = *ref.SourceID
				}
				fmt.Fprintf(w, "source: %s\nsource_id: %s\n", ref.Source, id)
			})
		},
	}
}
