package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/internal/backlog"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newBacklogResolveCmd(a *app, bf *backlogFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <reference>...",
		Short: "Find the backlog item a reference points to",
		Long: `Resolve tries, in order: exact slug, partial slug, item number, tracker
reference, and a word search over descriptions. The first strategy with
exactly one match wins. A search with several matches lists them.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			res, err := a.engine().ResolveItem(input, bf.preference())
			var amb *backlog.AmbiguousError
			switch {
			case errors.As(err, &amb):
				if a.flags.jsonMode {
					if perr := printJSON(cmd.OutOrStdout(), map[string]any{"ambiguous": true, "candidates": amb.Candidates}); perr != nil {
						return perr
					}
				} else {
					printCandidates(cmd.OutOrStdout(), amb)
				}
				return userError{err}
			case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrEmptyInput):
				return userError{err}
			case err != nil:
				return err
			}
			return a.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", res.Item.Slug, res.Strategy)
				if res.Item.Number != "" {
					fmt.Fprintf(w, "  item:   %s\n", res.Item.Number)
				}
				fmt.Fprintf(w, "  status: %s\n", res.Item.Status)
			})
		},
	}
}

func printCandidates(w io.Writer, amb *backlog.AmbiguousError) {
	fmt.Fprintf(w, "%q matches %d items:\n", amb.Input, len(amb.Candidates))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSLUG\tSTATUS\tDESCRIPTION")
	for _, c := range amb.Candidates {
		number := c.Number
		if number == "" {
			number = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", number, c.Slug, c.Status, c.Description)
	}
	tw.Flush()
}
