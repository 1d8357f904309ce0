package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newBacklogAddCmd(a *app, bf *backlogFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <description>...",
		Short: "Append an item to the backlog index and create its record",
		Long: `Add appends "- <n> [ ] <description>" to the backlog index and writes
docs/requirements/<slug>/meta.json.

Example:
  phasegate backlog add "Add login page"
  phasegate backlog add --tracker jira --project-key PROJ 42`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, slug, err := a.engine().AddItem(cmd.Context(), strings.Join(args, " "), bf.preference())
			if errors.Is(err, types.ErrEmptyInput) {
				return userError{err}
			}
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"number": line.Number, "slug": slug, "line": line.String()}, func(w io.Writer) {
				fmt.Fprintln(w, line.String())
				fmt.Fprintln(w, "slug:", slug)
			})
		},
	}
}
