package cmd

import (
	"github.com/spf13/cobra"

	"github.com/beastbyte/phonnx/pkg/ops"
)

// NewEmbedCommand returns the command sending prompts to a text embedding service.
func NewEmbedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed PROMPT...",
		Short: "Send prompts to a text embedding service",
		Long:  "Send prompts to a text embedding service and print one embedding per prompt as JSON.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  embed,
	}

	bindEndpointFlags(cmd)
	cmd.Flags().String("embedding-location", "0", "the comma separated path the embedding is read from")
	cmd.Flags().Int("batch-size", 0, "the number of prompts sent per request, 0 sends one request per prompt")

	return cmd
}

func embed(cmd *cobra.Command, args []string) error {
	ec, err := newExchangeContext()
	if err != nil {
		return err
	}
	defer ec.Close()

	endpoint, overrides := endpointFromFlags(cmd)
	extraParams, _ := cmd.Flags().GetString("extra-params")
	promptLocation, _ := cmd.Flags().GetString("prompt-location")
	embeddingLocation, _ := cmd.Flags().GetString("embedding-location")
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	op, err := ops.NewTextEmbedding(ops.TextEmbeddingConfig{
		Endpoint:          endpoint,
		ExtraParamsJSON:   extraParams,
		PromptLocation:    promptLocation,
		EmbeddingLocation: embeddingLocation,
		BatchSize:         batchSize,
	}, ec.Client, ec.opOptions()...)
	if err != nil {
		return err
	}

	prompts, err := promptColumn(args)
	if err != nil {
		return err
	}

	embeddings, err := op.Run(cmd.Context(), prompts, overrides)
	if err != nil {
		return err
	}

	rows, err := embeddings.Rows()
	if err != nil {
		return err
	}
	return writeJSON(cmd, rows)
}
