package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/pathcodec"
)

const pathFlag = "path"

// NewPathCommand returns the command grouping the document path operations.
func NewPathCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Build and read nested documents with comma separated paths",
		Long: `Build and read nested documents with comma separated paths.

A key suffixed with [] wraps its value in a one-element list, and <<batch_dim>> marks
the axis a batch of values is laid out along.`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newPathBuildCommand())
	cmd.AddCommand(newPathExtractCommand())

	return cmd
}

func newPathBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build FILE",
		Short: "Nest a value, or a list of values, under a path",
		Long:  "Nest the YAML or JSON value read from FILE (- for stdin) under a path. With a batched path the value must be a list.",
		Args:  cobra.ExactArgs(1),
		RunE:  buildPath,
	}

	cmd.Flags().String(pathFlag, "", "the comma separated path")
	_ = cmd.MarkFlagRequired(pathFlag)

	return cmd
}

func buildPath(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString(pathFlag)
	path, err := pathcodec.Parse(raw)
	if err != nil {
		return err
	}

	value, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}

	var doc any
	if path.BatchPosition() >= 0 {
		values, ok := value.([]any)
		if !ok {
			return phonnxerrors.Usagef("path '%s' is batched, the value must be a list", path)
		}
		doc, err = pathcodec.BuildBatched(path, values)
	} else {
		doc, err = pathcodec.Build(path, value)
	}
	if err != nil {
		return err
	}

	return writeJSON(cmd, doc)
}

func newPathExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Read the value at a path",
		Long:  "Read the value at a path of the YAML or JSON document in FILE (- for stdin). An absent value is an error unless --default is set.",
		Args:  cobra.ExactArgs(1),
		RunE:  extractPath,
	}

	cmd.Flags().String(pathFlag, "", "the comma separated path")
	_ = cmd.MarkFlagRequired(pathFlag)
	cmd.Flags().String("default", "", "the value printed when nothing is found at the path")

	return cmd
}

func extractPath(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString(pathFlag)
	path, err := pathcodec.Parse(raw)
	if err != nil {
		return err
	}

	doc, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}

	res, err := pathcodec.Extract(doc, path)
	if err != nil {
		return err
	}
	if !res.Found() {
		if cmd.Flags().Changed("default") {
			def, _ := cmd.Flags().GetString("default")
			return writeJSON(cmd, def)
		}
		return fmt.Errorf("nothing found at '%s'", path)
	}

	return writeJSON(cmd, res.Value())
}
