package ops

import (
	"testing"

	"github.com/stretchr/testify/require"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

func TestExtractFromEnv(t *testing.T) {
	t.Setenv("PHONNX_TEST_KEY", "secret")

	require.Equal(t, "secret", ExtractFromEnv("env://PHONNX_TEST_KEY"))
	require.Equal(t, "", ExtractFromEnv("env://PHONNX_TEST_UNSET"))
	require.Equal(t, "", ExtractFromEnv("PHONNX_TEST_KEY"))
	require.Equal(t, "", ExtractFromEnv(""))
}

func TestExtractHighestPriority(t *testing.T) {
	t.Setenv("PHONNX_TEST_URL", "https://from-env")

	require.Equal(t, "https://input", ExtractHighestPriority("https://input", "env://PHONNX_TEST_URL"))
	require.Equal(t, "https://from-env", ExtractHighestPriority("", "env://PHONNX_TEST_URL"))
	require.Equal(t, "", ExtractHighestPriority("", "https://literal"))
}

func TestPrepareRequestInfo(t *testing.T) {
	t.Setenv("PHONNX_TEST_KEY", "env-key")
	t.Setenv("PHONNX_TEST_URL", "https://env.example.com")

	for _, tc := range []struct {
		name      string
		overrides Overrides
		endpoint  Endpoint
		expected  RequestInfo
		wantErr   bool
	}{
		{
			name:     "default_url_and_header",
			endpoint: Endpoint{DefaultURL: "https://default.example.com"},
			expected: RequestInfo{
				URL:     "https://default.example.com",
				Headers: map[string]string{"Content-Type": "application/json"},
			},
		},
		{
			name:      "input_wins",
			overrides: Overrides{URL: "https://input.example.com", Key: "input-key", Org: "input-org"},
			endpoint: Endpoint{
				URL:           "env://PHONNX_TEST_URL",
				DefaultURL:    "https://default.example.com",
				Key:           "env://PHONNX_TEST_KEY",
				HeaderKeyAuth: "Authorization",
				HeaderKeyOrg:  "OpenAI-Organization",
			},
			expected: RequestInfo{
				URL: "https://input.example.com",
				Headers: map[string]string{
					"Content-Type":        "application/json",
					"Authorization":       "input-key",
					"OpenAI-Organization": "input-org",
				},
			},
		},
		{
			name: "env_references",
			endpoint: Endpoint{
				URL:           "env://PHONNX_TEST_URL",
				Key:           "env://PHONNX_TEST_KEY",
				HeaderKeyAuth: "x-api-key",
			},
			expected: RequestInfo{
				URL: "https://env.example.com",
				Headers: map[string]string{
					"Content-Type": "application/json",
					"x-api-key":    "env-key",
				},
			},
		},
		{
			name: "literal_endpoint_values_are_ignored",
			endpoint: Endpoint{
				URL:           "https://literal.example.com",
				DefaultURL:    "https://default.example.com",
				Key:           "sk-literal",
				Org:           "org-literal",
				HeaderKeyAuth: "Authorization",
				HeaderKeyOrg:  "OpenAI-Organization",
			},
			expected: RequestInfo{
				URL:     "https://default.example.com",
				Headers: map[string]string{"Content-Type": "application/json"},
			},
		},
		{
			name:      "dash_means_unset",
			overrides: Overrides{Key: "-", Org: "-"},
			endpoint: Endpoint{
				DefaultURL:    "https://default.example.com",
				HeaderKeyAuth: "Authorization",
				HeaderKeyOrg:  "OpenAI-Organization",
			},
			expected: RequestInfo{
				URL:     "https://default.example.com",
				Headers: map[string]string{"Content-Type": "application/json"},
			},
		},
		{
			name:      "custom_header",
			overrides: Overrides{Key: "k"},
			endpoint: Endpoint{
				DefaultURL:    "https://default.example.com",
				HeaderKeyAuth: "Authorization",
				CustomHeader:  `{"Content-Type": "text/plain", "X-Trace": "1"}`,
			},
			expected: RequestInfo{
				URL: "https://default.example.com",
				Headers: map[string]string{
					"Content-Type":  "text/plain",
					"X-Trace":       "1",
					"Authorization": "k",
				},
			},
		},
		{
			name:     "no_url",
			endpoint: Endpoint{URL: "env://PHONNX_TEST_UNSET"},
			wantErr:  true,
		},
		{
			name:     "malformed_custom_header",
			endpoint: Endpoint{DefaultURL: "https://default.example.com", CustomHeader: `{"a": 1}`},
			wantErr:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			info, err := PrepareRequestInfo(tc.overrides, tc.endpoint)
			if tc.wantErr {
				require.ErrorIs(t, err, phonnxerrors.ErrUsage)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, info)
		})
	}
}

func TestOverridesFromTensors(t *testing.T) {
	url, err := tensor.New([]int{1, 1}, []any{"https://input"})
	require.NoError(t, err)

	o, err := OverridesFromTensors(url, tensor.Strings("key"), nil)
	require.NoError(t, err)
	require.Equal(t, Overrides{URL: "https://input", Key: "key"}, o)

	_, err = OverridesFromTensors(tensor.Strings("a", "b"), nil, nil)
	require.ErrorIs(t, err, phonnxerrors.ErrUsage)
	require.ErrorContains(t, err, "url must be a scalar")
}

func TestWithBearer(t *testing.T) {
	headers := map[string]string{"Authorization": "sk-1"}
	withBearer(headers)
	require.Equal(t, "Bearer sk-1", headers["Authorization"])

	withBearer(headers)
	require.Equal(t, "Bearer sk-1", headers["Authorization"])

	headers = map[string]string{"api-key": "sk-1"}
	withBearer(headers)
	require.Equal(t, map[string]string{"api-key": "sk-1"}, headers)
}
