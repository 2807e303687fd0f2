package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/beastbyte/phonnx/pkg/columntype"
	"github.com/beastbyte/phonnx/pkg/naming"
)

// NewNamesCommand returns the command grouping the node name inspections.
func NewNamesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Inspect graph node names",
		Long:  "Inspect graph node names and the metadata they encode.",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newNamesClassifyCommand())
	cmd.AddCommand(newNamesOutputsCommand())

	return cmd
}

func newNamesClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify NAME...",
		Short: "Classify input names into regular inputs and dynamic attributes",
		Long:  "Classify input names into regular inputs and dynamic attributes and print the column type of every name.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  classifyNames,
	}
}

func classifyNames(cmd *cobra.Command, args []string) error {
	inputs, dynattrs := naming.Classify(args)
	kinds := make(map[string]string, len(args))
	for _, name := range inputs {
		kinds[name] = naming.InputRole
	}
	for _, name := range dynattrs {
		kinds[name] = naming.DynamicAttributeRole
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tCOLUMN TYPE")
	for _, name := range args {
		kind, ok := kinds[name]
		if !ok {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, "ignored", "-")
			continue
		}
		parsed, err := naming.Parse(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, kind, columntype.Resolve(parsed.ColumnTypeCode))
	}
	return w.Flush()
}

func newNamesOutputsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outputs NAME...",
		Short: "Print the outputs of the last pipeline stage",
		Long:  "Print, one per line, the output names produced by the last pipeline stage.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  finalOutputs,
	}
}

func finalOutputs(cmd *cobra.Command, args []string) error {
	final, err := naming.SelectFinalOutputs(args)
	if err != nil {
		return err
	}
	for _, name := range final {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
