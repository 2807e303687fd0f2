package ops

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/pathcodec"
	"github.com/beastbyte/phonnx/pkg/tensor"
	"github.com/beastbyte/phonnx/pkg/transport"
)

type TextEmbeddingConfig struct {
	Endpoint
	ExtraParamsJSON string `validate:"omitempty,json"`
	// PromptLocation defaults to "prompt". With a batch size it must contain <<batch_dim>>.
	PromptLocation string
	// EmbeddingLocation defaults to "0". With a batch size it must contain <<batch_dim>>.
	EmbeddingLocation string
	// BatchSize is the number of prompts per request; 0 sends one request per prompt.
	BatchSize int `validate:"gte=0"`
}

// TextEmbedding embeds prompts with a remote embedding service, one prompt or one batch of
// prompts per request.
type TextEmbedding struct {
	endpoint          Endpoint
	params            map[string]any
	promptLocation    pathcodec.Path
	embeddingLocation pathcodec.Path
	batchSize         int
	exchanger         transport.Exchanger
	options
}

func NewTextEmbedding(cfg TextEmbeddingConfig, exchanger transport.Exchanger, opts ...Option) (*TextEmbedding, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.PromptLocation == "" {
		cfg.PromptLocation = defaultPromptLocation
	}
	if cfg.EmbeddingLocation == "" {
		cfg.EmbeddingLocation = defaultCompletionLocation
	}

	params, err := parseExtraParams(cfg.ExtraParamsJSON)
	if err != nil {
		return nil, err
	}
	promptLocation, err := pathcodec.Parse(cfg.PromptLocation)
	if err != nil {
		return nil, fmt.Errorf("prompt location: %w", err)
	}
	embeddingLocation, err := pathcodec.Parse(cfg.EmbeddingLocation)
	if err != nil {
		return nil, fmt.Errorf("embedding location: %w", err)
	}

	if cfg.BatchSize == 0 && promptLocation.BatchPosition() >= 0 {
		return nil, phonnxerrors.Usagef("%s is used in prompt location but batch size is 0", pathcodec.BatchToken)
	}
	if cfg.BatchSize > 0 {
		if promptLocation.BatchPosition() < 0 {
			return nil, phonnxerrors.Usagef("%s must be in prompt location", pathcodec.BatchToken)
		}
		if embeddingLocation.BatchPosition() < 0 {
			return nil, phonnxerrors.Usagef("%s must be in embedding location", pathcodec.BatchToken)
		}
	}

	return &TextEmbedding{
		endpoint:          cfg.Endpoint,
		params:            params,
		promptLocation:    promptLocation,
		embeddingLocation: embeddingLocation,
		batchSize:         cfg.BatchSize,
		exchanger:         exchanger,
		options:           newOptions(opts),
	}, nil
}

// Run embeds a (batch, 1) string tensor into a float32 (batch, dim) tensor.
func (e *TextEmbedding) Run(ctx context.Context, prompts *tensor.Tensor, o Overrides) (*tensor.Tensor, error) {
	texts, err := singleColumn(prompts, "prompts")
	if err != nil {
		return nil, err
	}
	info, err := PrepareRequestInfo(o, e.endpoint)
	if err != nil {
		return nil, err
	}

	spans := Batches(len(texts), e.batchSize)
	perSpan := make([][]any, len(spans))
	err = forEach(ctx, len(spans), e.concurrency, func(ctx context.Context, i int) error {
		embeddings, err := e.exchange(ctx, info, texts[spans[i].Start:spans[i].End])
		if err != nil {
			return err
		}
		perSpan[i] = embeddings
		return nil
	})
	if err != nil {
		return nil, err
	}

	var embeddings []any
	for _, batch := range perSpan {
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("number of embeddings (%d) did not match number of prompts (%d)", len(embeddings), len(texts))
	}

	e.logger.DebugWithContext(ctx, "text embedding finished",
		zap.Int("prompts", len(texts)),
		zap.Int("requests", len(spans)),
		zap.String("url", info.URL),
	)

	if len(embeddings) == 0 {
		return tensor.New([]int{0, 0}, nil)
	}
	m, err := toMatrix(embeddings)
	if err != nil {
		return nil, err
	}
	return tensor.FromDense(m).As(tensor.Float)
}

// exchange sends one request for texts and returns the embeddings found in the response.
func (e *TextEmbedding) exchange(ctx context.Context, info RequestInfo, texts []string) ([]any, error) {
	if e.batchSize == 0 {
		doc, err := pathcodec.Build(e.promptLocation, texts[0])
		if err != nil {
			return nil, err
		}
		response, err := e.exchanger.Exchange(ctx, info.URL, requestBody(doc, e.params), info.Headers)
		if err != nil {
			return nil, err
		}
		res, err := pathcodec.Extract(response, e.embeddingLocation)
		if err != nil {
			return nil, err
		}
		if !res.Found() {
			return nil, fmt.Errorf("no embedding at '%s' in response", e.embeddingLocation)
		}
		return []any{res.Value()}, nil
	}

	doc, err := pathcodec.BuildBatched(e.promptLocation, toAny(texts))
	if err != nil {
		return nil, err
	}
	response, err := e.exchanger.Exchange(ctx, info.URL, requestBody(doc, e.params), info.Headers)
	if err != nil {
		return nil, err
	}

	embeddings := make([]any, 0, len(texts))
	for i := 0; i < e.batchSize; i++ {
		location, err := e.embeddingLocation.WithBatchIndex(i)
		if err != nil {
			return nil, err
		}
		res, err := pathcodec.Extract(response, location)
		if err != nil {
			return nil, err
		}
		if !res.Found() {
			break
		}
		embeddings = append(embeddings, res.Value())
	}
	return embeddings, nil
}

func toMatrix(embeddings []any) (*mat.Dense, error) {
	var (
		dim  = -1
		data []float64
	)
	for i, emb := range embeddings {
		values, ok := emb.([]any)
		if !ok {
			return nil, fmt.Errorf("embedding %d is not a list of numbers: %T", i, emb)
		}
		if dim == -1 {
			dim = len(values)
			if dim == 0 {
				return nil, fmt.Errorf("embedding %d is empty", i)
			}
			data = make([]float64, 0, dim*len(embeddings))
		}
		if len(values) != dim {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(values), dim)
		}
		for j, v := range values {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("embedding %d element %d is not a number: %T", i, j, v)
			}
			data = append(data, f)
		}
	}
	return mat.NewDense(len(embeddings), dim, data), nil
}
