package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newBacklogElaborateCmd(a *app) *cobra.Command {
	var summary string
	cmd := &cobra.Command{
		Use:   "elaborate <slug> <topic>...",
		Short: "Append a discussion round to an item's record",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			el, err := a.engine().AddElaboration(slug, strings.Join(args[1:], " "), summary)
			switch {
			case errors.Is(err, types.ErrEmptyInput):
				return userError{err}
			case err != nil:
				return recordErr(slug, err)
			}
			return a.emit(cmd, el, func(w io.Writer) {
				fmt.Fprintf(w, "round %d: %s\n", el.Round, el.Topic)
			})
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "outcome of the discussion")
	return cmd
}
