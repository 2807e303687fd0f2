package ops

import (
	"context"

	"go.uber.org/zap"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/pathcodec"
	"github.com/beastbyte/phonnx/pkg/tensor"
	"github.com/beastbyte/phonnx/pkg/transport"
)

const (
	vertexRoleUser       = "user"
	vertexRoleBot        = "bot"
	vertexRoleContext    = "context"
	vertexRoleExampleIn  = "example_in"
	vertexRoleExampleOut = "example_out"
)

var vertexContentLocation = pathcodec.MustParse("predictions,0,candidates,0,content")

type VertexChatCompletionConfig struct {
	URL        string
	DefaultURL string
	Key        string
	// Roles is the comma separated role of every message column: user, bot, context,
	// example_in or example_out.
	Roles           string  `validate:"required"`
	Temperature     float32 `validate:"gte=0,lte=1"`
	MaxOutputTokens int     `validate:"gte=1"`
	TopP            float32 `validate:"gte=0,lte=1"`
	TopK            int     `validate:"gte=1"`
}

func DefaultVertexChatCompletionConfig() VertexChatCompletionConfig {
	return VertexChatCompletionConfig{
		Temperature:     0.7,
		MaxOutputTokens: 4096,
		TopP:            0.95,
		TopK:            40,
	}
}

type VertexChatCompletion struct {
	endpoint  Endpoint
	roles     []string
	params    map[string]any
	exchanger transport.Exchanger
	options
}

func NewVertexChatCompletion(cfg VertexChatCompletionConfig, exchanger transport.Exchanger, opts ...Option) (*VertexChatCompletion, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	roles := splitList(cfg.Roles)
	if _, err := vertexInstance(make([]string, len(roles)), roles); err != nil {
		return nil, err
	}

	return &VertexChatCompletion{
		endpoint: Endpoint{
			URL:           cfg.URL,
			DefaultURL:    cfg.DefaultURL,
			Key:           cfg.Key,
			HeaderKeyAuth: "Authorization",
		},
		roles: roles,
		params: map[string]any{
			"temperature":     cfg.Temperature,
			"maxOutputTokens": cfg.MaxOutputTokens,
			"topP":            cfg.TopP,
			"topK":            cfg.TopK,
		},
		exchanger: exchanger,
		options:   newOptions(opts),
	}, nil
}

// Run answers every conversation of a (batch, len(roles)) string tensor. The organisation
// override is ignored.
func (v *VertexChatCompletion) Run(ctx context.Context, messages *tensor.Tensor, o Overrides) (*tensor.Tensor, error) {
	rows, err := stringRows(messages, "messages", len(v.roles))
	if err != nil {
		return nil, err
	}
	o.Org = ""
	info, err := PrepareRequestInfo(o, v.endpoint)
	if err != nil {
		return nil, err
	}
	withBearer(info.Headers)

	replies := make([]string, len(rows))
	err = forEach(ctx, len(rows), v.concurrency, func(ctx context.Context, i int) error {
		instance, err := vertexInstance(rows[i], v.roles)
		if err != nil {
			return err
		}
		body := map[string]any{
			"parameters": v.params,
			"instances":  []any{instance},
		}

		response, err := v.exchanger.Exchange(ctx, info.URL, body, info.Headers)
		if err != nil {
			return err
		}
		res, err := pathcodec.Extract(response, vertexContentLocation)
		if err != nil {
			return err
		}
		replies[i] = stringify(res.Or(""))
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logger.DebugWithContext(ctx, "vertex chat completion finished", zap.Int("conversations", len(rows)))
	return stringColumn(replies), nil
}

// vertexInstance lays out one conversation: user and bot turns become messages, the context
// column the context and example_in/example_out pairs the examples.
func vertexInstance(row, roles []string) (map[string]any, error) {
	var (
		contextText *string
		examplesIn  []string
		examplesOut []string
		messages    = []any{}
	)
	for i, role := range roles {
		switch role {
		case vertexRoleUser, vertexRoleBot:
			messages = append(messages, map[string]any{"author": role, "content": row[i]})
		case vertexRoleContext:
			contextText = &row[i]
		case vertexRoleExampleIn:
			examplesIn = append(examplesIn, row[i])
		case vertexRoleExampleOut:
			examplesOut = append(examplesOut, row[i])
		default:
			return nil, phonnxerrors.Usagef("unknown role '%s'", role)
		}
	}
	if len(examplesIn) != len(examplesOut) {
		return nil, phonnxerrors.Usagef("number of example_in (%d) and example_out (%d) must match", len(examplesIn), len(examplesOut))
	}

	instance := map[string]any{"messages": messages}
	if len(examplesIn) > 0 {
		examples := make([]any, len(examplesIn))
		for i := range examplesIn {
			examples[i] = map[string]any{
				"input":  map[string]any{"content": examplesIn[i]},
				"output": map[string]any{"content": examplesOut[i]},
			}
		}
		instance["examples"] = examples
	}
	if contextText != nil {
		instance["context"] = *contextText
	}
	return instance, nil
}
