package ops

import (
	"context"
	"maps"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/beastbyte/phonnx/pkg/pathcodec"
	"github.com/beastbyte/phonnx/pkg/tensor"
	"github.com/beastbyte/phonnx/pkg/transport"
)

type ChatVariant string

const (
	VariantOpenAI ChatVariant = "openai"
	VariantAzure  ChatVariant = "azure"

	defaultTemperature = 0.7

	organizationHeader = "OpenAI-Organization"
	azureKeyHeader     = "api-key"
)

var chatContentLocation = pathcodec.MustParse("choices,0,message,content")

type ChatCompletionConfig struct {
	URL        string
	DefaultURL string
	Key        string
	Org        string
	Model      string
	// Roles is the comma separated role of every message column, e.g. "system,user".
	Roles string `validate:"required"`
	// Temperature defaults to 0.7 when nil.
	Temperature     *float32    `validate:"omitempty,gte=0,lte=2"`
	ExtraParamsJSON string      `validate:"omitempty,json"`
	Variant         ChatVariant `validate:"omitempty,oneof=openai azure"`
}

// ChatCompletion sends every row of a messages tensor as one conversation to an OpenAI
// compatible chat completion endpoint.
type ChatCompletion struct {
	endpoint  Endpoint
	roles     []string
	params    map[string]any
	exchanger transport.Exchanger
	options
}

func NewChatCompletion(cfg ChatCompletionConfig, exchanger transport.Exchanger, opts ...Option) (*ChatCompletion, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Variant == "" {
		cfg.Variant = VariantOpenAI
	}

	temperature := float32(defaultTemperature)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	params := map[string]any{"temperature": temperature}
	extra, err := parseExtraParams(cfg.ExtraParamsJSON)
	if err != nil {
		return nil, err
	}
	maps.Copy(params, extra)
	if cfg.Model != "" {
		params["model"] = cfg.Model
	}

	authHeader := "Authorization"
	if cfg.Variant == VariantAzure {
		authHeader = azureKeyHeader
	}

	return &ChatCompletion{
		endpoint: Endpoint{
			URL:           cfg.URL,
			DefaultURL:    cfg.DefaultURL,
			Key:           cfg.Key,
			Org:           cfg.Org,
			HeaderKeyAuth: authHeader,
			HeaderKeyOrg:  organizationHeader,
		},
		roles:     splitList(cfg.Roles),
		params:    params,
		exchanger: exchanger,
		options:   newOptions(opts),
	}, nil
}

// Run answers every conversation of a (batch, len(roles)) string tensor and returns a
// (batch, 1) tensor of replies.
func (c *ChatCompletion) Run(ctx context.Context, messages *tensor.Tensor, o Overrides) (*tensor.Tensor, error) {
	rows, err := stringRows(messages, "messages", len(c.roles))
	if err != nil {
		return nil, err
	}
	info, err := PrepareRequestInfo(o, c.endpoint)
	if err != nil {
		return nil, err
	}
	withBearer(info.Headers)

	replies := make([]string, len(rows))
	err = forEach(ctx, len(rows), c.concurrency, func(ctx context.Context, i int) error {
		body := maps.Clone(c.params)
		body["messages"] = chatMessages(rows[i], c.roles)

		response, err := c.exchanger.Exchange(ctx, info.URL, body, info.Headers)
		if err != nil {
			return err
		}
		res, err := pathcodec.Extract(response, chatContentLocation)
		if err != nil {
			return err
		}
		replies[i] = stringify(res.Or(""))
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithContext(ctx, "chat completion finished", zap.Int("conversations", len(rows)))
	return stringColumn(replies), nil
}

func chatMessages(row, roles []string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, len(row))
	for i, content := range row {
		messages[i] = openai.ChatCompletionMessage{
			Role:    roles[i],
			Content: content,
		}
	}
	return messages
}
