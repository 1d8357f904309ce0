package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/pkg/types"
)

func newBacklogSizeCmd(a *app) *cobra.Command {
	var d types.SizingDecision
	cmd := &cobra.Command{
		Use:   "size <slug>",
		Short: "Record a sizing decision for an item",
		Long: `Size stores the item's sizing decision. A light decision with --skip lets
analysis count as complete once the remaining phases are done.

Example:
  phasegate backlog size login-page --intensity light --skip 03-architecture,04-design`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			switch d.Intensity {
			case types.IntensityLight, types.IntensityStandard:
			default:
				return userErr("unknown intensity %q (valid: light, standard)", d.Intensity)
			}
			for _, p := range d.LightSkipPhases {
				if !types.IsAnalysisPhase(p) {
					return userErr("%v: %s", types.ErrUnknownPhase, p)
				}
			}
			rec, err := a.engine().SetSizing(slug, &d)
			if err != nil {
				return recordErr(slug, err)
			}
			return a.emit(cmd, rec, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s sizing, status %s\n", slug, d.Intensity, rec.AnalysisStatus)
			})
		},
	}
	cmd.Flags().StringVar(&d.Intensity, "intensity", types.IntensityStandard, "light or standard")
	cmd.Flags().StringSliceVar(&d.LightSkipPhases, "skip", nil, "analysis phases a light sizing skips")
	cmd.Flags().IntVar(&d.FileCount, "files", 0, "estimated number of files touched")
	cmd.Flags().StringVar(&d.RiskLevel, "risk", "", "risk level")
	cmd.Flags().StringVar(&d.Rationale, "rationale", "", "why this sizing")
	return cmd
}
