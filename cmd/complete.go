package cmd

import (
	"github.com/spf13/cobra"

	"github.com/beastbyte/phonnx/pkg/ops"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

// NewCompleteCommand returns the command sending prompts to a text completion service.
func NewCompleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete PROMPT...",
		Short: "Send prompts to a text completion service",
		Long:  "Send every prompt to a text completion service and print the completions as a JSON list.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  complete,
	}

	bindEndpointFlags(cmd)
	cmd.Flags().String("completion-location", "0", "the comma separated path the completion is read from")

	return cmd
}

func complete(cmd *cobra.Command, args []string) error {
	ec, err := newExchangeContext()
	if err != nil {
		return err
	}
	defer ec.Close()

	endpoint, overrides := endpointFromFlags(cmd)
	extraParams, _ := cmd.Flags().GetString("extra-params")
	promptLocation, _ := cmd.Flags().GetString("prompt-location")
	completionLocation, _ := cmd.Flags().GetString("completion-location")

	op, err := ops.NewTextCompletion(ops.TextCompletionConfig{
		Endpoint:           endpoint,
		ExtraParamsJSON:    extraParams,
		PromptLocation:     promptLocation,
		CompletionLocation: completionLocation,
	}, ec.Client, ec.opOptions()...)
	if err != nil {
		return err
	}

	prompts, err := promptColumn(args)
	if err != nil {
		return err
	}

	completions, err := op.Run(cmd.Context(), prompts, overrides)
	if err != nil {
		return err
	}

	return writeJSON(cmd, completions.Values())
}

func promptColumn(prompts []string) (*tensor.Tensor, error) {
	return tensor.Strings(prompts...).Reshape(len(prompts), 1)
}
