package ops

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/beastbyte/phonnx/internal/mocks"
	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

const chatURL = "https://api.openai.com/v1/chat/completions"

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestChatCompletionOpenAI(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	messages, err := tensor.FromRows([][]any{
		{"You are terse.", "Hello"},
		{"You are verbose.", "Bye"},
	})
	require.NoError(t, err)

	headers := map[string]string{
		"Content-Type":        "application/json",
		"Authorization":       "Bearer sk-test",
		"OpenAI-Organization": "org-1",
	}
	exchanger := mocks.NewMockExchanger(mockController)
	gomock.InOrder(
		exchanger.EXPECT().
			Exchange(gomock.Any(), chatURL, map[string]any{
				"temperature": float32(0.7),
				"model":       "gpt-4o-mini",
				"max_tokens":  16.0,
				"messages": []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: "You are terse."},
					{Role: openai.ChatMessageRoleUser, Content: "Hello"},
				},
			}, headers).
			Return(chatResponse("Hi."), nil),
		exchanger.EXPECT().
			Exchange(gomock.Any(), chatURL, gomock.Any(), headers).
			Return(map[string]any{"error": map[string]any{"message": "rate limited"}}, nil),
	)

	t.Setenv("PHONNX_TEST_OPENAI_KEY", "sk-test")
	t.Setenv("PHONNX_TEST_OPENAI_ORG", "org-1")
	op, err := NewChatCompletion(ChatCompletionConfig{
		DefaultURL:      chatURL,
		Key:             "env://PHONNX_TEST_OPENAI_KEY",
		Org:             "env://PHONNX_TEST_OPENAI_ORG",
		Model:           "gpt-4o-mini",
		Roles:           "system,user",
		ExtraParamsJSON: `{"max_tokens": 16}`,
	}, exchanger)
	require.NoError(t, err)

	out, err := op.Run(context.Background(), messages, Overrides{})
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, out.Shape())
	require.Equal(t, []any{"Hi.", ""}, out.Values())
}

func TestChatCompletionAzure(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	temperature := float32(0)
	exchanger := mocks.NewMockExchanger(mockController)
	exchanger.EXPECT().
		Exchange(gomock.Any(), "https://my.openai.azure.com/chat", map[string]any{
			"temperature": float32(0),
			"messages": []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: "Hello"},
			},
		}, map[string]string{
			"Content-Type": "application/json",
			"api-key":      "azure-key",
		}).
		Return(chatResponse("Hi from Azure"), nil)

	op, err := NewChatCompletion(ChatCompletionConfig{
		Roles:       "user",
		Temperature: &temperature,
		Variant:     VariantAzure,
	}, exchanger)
	require.NoError(t, err)

	messages, err := tensor.FromRows([][]any{{"Hello"}})
	require.NoError(t, err)

	out, err := op.Run(context.Background(), messages, Overrides{
		URL: "https://my.openai.azure.com/chat",
		Key: "azure-key",
	})
	require.NoError(t, err)
	require.Equal(t, []any{"Hi from Azure"}, out.Values())
}

func TestChatCompletionErrors(t *testing.T) {
	t.Run("unknown_variant", func(t *testing.T) {
		_, err := NewChatCompletion(ChatCompletionConfig{Roles: "user", Variant: "anthropic"}, nil)
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})

	t.Run("missing_roles", func(t *testing.T) {
		_, err := NewChatCompletion(ChatCompletionConfig{}, nil)
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})

	t.Run("roles_do_not_match_columns", func(t *testing.T) {
		op, err := NewChatCompletion(ChatCompletionConfig{DefaultURL: chatURL, Roles: "system,user"}, nil)
		require.NoError(t, err)

		messages, err := tensor.FromRows([][]any{{"only one"}})
		require.NoError(t, err)

		_, err = op.Run(context.Background(), messages, Overrides{})
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
		require.ErrorContains(t, err, "1 columns but 2 roles")
	})

	t.Run("flat_messages", func(t *testing.T) {
		op, err := NewChatCompletion(ChatCompletionConfig{DefaultURL: chatURL, Roles: "user"}, nil)
		require.NoError(t, err)

		_, err = op.Run(context.Background(), tensor.Strings("hello"), Overrides{})
		require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	})
}
