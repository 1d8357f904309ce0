package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newBacklogTierCmd(a *app) *cobra.Command {
	var (
		files int
		risk  string
	)
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Recommend a workflow tier from a file-count estimate and risk",
		Long: `Tier maps the estimated number of touched files to trivial, light,
standard, or epic using tier_thresholds from phasegate.yaml, then promotes
one tier for medium or high risk.

Example:
  phasegate backlog tier --files 15 --risk medium`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := a.engine().RecommendTier(files, risk)
			return a.emit(cmd, rec, func(w io.Writer) {
				if rec.Promoted {
					fmt.Fprintf(w, "%s (promoted from %s, %s risk)\n", rec.Tier, rec.BaseTier, rec.RiskLevel)
					return
				}
				fmt.Fprintln(w, rec.Tier)
			})
		},
	}
	cmd.Flags().IntVar(&files, "files", 0, "estimated number of files touched")
	cmd.Flags().StringVar(&risk, "risk", "low", "risk level: low, medium, high")
	return cmd
}
