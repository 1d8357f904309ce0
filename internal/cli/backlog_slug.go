package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/internal/backlog"
)

func newBacklogSlugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slug <text>...",
		Short: "Print the slug derived from text",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := backlog.Slug(strings.Join(args, " "))
			return a.emit(cmd, map[string]string{"slug": slug}, func(w io.Writer) {
				fmt.Fprintln(w, slug)
			})
		},
	}
}
