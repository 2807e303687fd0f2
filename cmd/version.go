package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beastbyte/phonnx/internal/build"
)

// NewVersionCommand returns the command to get phonnx version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the phonnx version",
		Long:  "Return the phonnx version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "phonnx Version %s Date %s commit id %s\n", build.Version, build.Date, build.Commit)
	return err
}
