package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/phasegate/pkg/phasegate"
)

const modulePath = "github.com/mesh-intelligence/phasegate"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the phasegate version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "phasegate v%s\nmodule: %s\n", phasegate.Version, modulePath)
			return nil
		},
	}
}
