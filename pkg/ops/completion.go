package ops

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/beastbyte/phonnx/pkg/pathcodec"
	"github.com/beastbyte/phonnx/pkg/tensor"
	"github.com/beastbyte/phonnx/pkg/transport"
)

const (
	defaultPromptLocation     = "prompt"
	defaultCompletionLocation = "0"
)

type TextCompletionConfig struct {
	Endpoint
	// ExtraParamsJSON is a JSON object merged into every request body.
	ExtraParamsJSON string `validate:"omitempty,json"`
	// PromptLocation is the comma separated path the prompt is written to.
	PromptLocation string
	// CompletionLocation is the comma separated path the completion is read from.
	CompletionLocation string
}

// TextCompletion sends one request per prompt to a completion service of any shape.
type TextCompletion struct {
	endpoint           Endpoint
	params             map[string]any
	promptLocation     pathcodec.Path
	completionLocation pathcodec.Path
	exchanger          transport.Exchanger
	options
}

func NewTextCompletion(cfg TextCompletionConfig, exchanger transport.Exchanger, opts ...Option) (*TextCompletion, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.PromptLocation == "" {
		cfg.PromptLocation = defaultPromptLocation
	}
	if cfg.CompletionLocation == "" {
		cfg.CompletionLocation = defaultCompletionLocation
	}

	params, err := parseExtraParams(cfg.ExtraParamsJSON)
	if err != nil {
		return nil, err
	}
	promptLocation, err := pathcodec.Parse(cfg.PromptLocation)
	if err != nil {
		return nil, fmt.Errorf("prompt location: %w", err)
	}
	completionLocation, err := pathcodec.Parse(cfg.CompletionLocation)
	if err != nil {
		return nil, fmt.Errorf("completion location: %w", err)
	}

	return &TextCompletion{
		endpoint:           cfg.Endpoint,
		params:             params,
		promptLocation:     promptLocation,
		completionLocation: completionLocation,
		exchanger:          exchanger,
		options:            newOptions(opts),
	}, nil
}

// Run completes every prompt of a (batch, 1) string tensor and returns the completions with
// the same shape. A completion missing from a response is "".
func (c *TextCompletion) Run(ctx context.Context, prompts *tensor.Tensor, o Overrides) (*tensor.Tensor, error) {
	texts, err := singleColumn(prompts, "prompts")
	if err != nil {
		return nil, err
	}
	info, err := PrepareRequestInfo(o, c.endpoint)
	if err != nil {
		return nil, err
	}

	completions := make([]string, len(texts))
	err = forEach(ctx, len(texts), c.concurrency, func(ctx context.Context, i int) error {
		doc, err := pathcodec.Build(c.promptLocation, texts[i])
		if err != nil {
			return err
		}
		response, err := c.exchanger.Exchange(ctx, info.URL, requestBody(doc, c.params), info.Headers)
		if err != nil {
			return err
		}
		res, err := pathcodec.Extract(response, c.completionLocation)
		if err != nil {
			return err
		}
		completions[i] = stringify(res.Or(""))
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithContext(ctx, "text completion finished", zap.Int("prompts", len(texts)), zap.String("url", info.URL))
	return stringColumn(completions), nil
}

// stringify renders an extracted value. Objects and lists are rendered as JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case map[string]any, []any:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
	s, err := tensor.Scalar(v).ScalarString()
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
