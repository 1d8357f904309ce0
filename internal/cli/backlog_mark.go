package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newBacklogMarkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <item-number> <slug>",
		Short: "Rewrite a backlog line's marker from its record's status",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, slug := args[0], args[1]
			marker, err := a.engine().SyncMarker(number, slug)
			switch {
			case errors.Is(err, types.ErrNotFound):
				return userErr("no backlog item %s", number)
			case err != nil:
				return recordErr(slug, err)
			}
			return a.emit(cmd, map[string]string{"number": number, "marker": string(marker)}, func(w io.Writer) {
				fmt.Fprintf(w, "%s [%c]\n", number, marker)
			})
		},
	}
}
