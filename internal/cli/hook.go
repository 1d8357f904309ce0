package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/internal/hook"
)

const hookCmdName = "hook"

func newHookCmd(a *app) *cobra.Command {
	names := make([]string, 0, len(hook.Categories()))
	for _, c := range hook.Categories() {
		names = append(names, string(c))
	}
	return &cobra.Command{
		Use:   hookCmdName + " <category>",
		Short: "Run the checks for one intercepted event read from stdin",
		Long: fmt.Sprintf(`Hook reads one JSON event from stdin and runs the checks of the given
category (%s).

A pre-task check that blocks prints {"decision":"block","reason":"..."} on
stdout. Diagnostics go to stderr. The command exits 0 for every event,
including malformed ones.`, strings.Join(names, ", ")),
		Args:      exactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := hook.ParseCategory(args[0])
			if err != nil {
				return userError{err}
			}
			d := &hook.Dispatcher{
				Layout: a.layout,
				Config: a.cfg,
				Logger: a.logger,
				Now:    time.Now,
			}
			return d.Run(cmd.Context(), cat, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}
