package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

const (
	envPrefix = "env://"
	// unset marks a key or organisation that must not be sent.
	unset = "-"

	defaultContentType = "application/json"
)

// ExtractFromEnv resolves an "env://NAME" reference. Anything else, or an unset variable,
// yields "".
func ExtractFromEnv(ref string) string {
	name, ok := strings.CutPrefix(ref, envPrefix)
	if !ok {
		return ""
	}
	return os.Getenv(name)
}

// ExtractHighestPriority returns input when it is not empty and the resolved env reference
// otherwise.
func ExtractHighestPriority(input, ref string) string {
	if input != "" {
		return input
	}
	return ExtractFromEnv(ref)
}

// Overrides are the per-call values a graph feeds an operator next to its prompts. They take
// precedence over the operator's configuration.
type Overrides struct {
	URL string
	Key string
	Org string
}

// OverridesFromTensors reads the single-element url, key and org tensors. A nil tensor is
// an empty override.
func OverridesFromTensors(url, key, org *tensor.Tensor) (Overrides, error) {
	var o Overrides
	for _, field := range []struct {
		name string
		t    *tensor.Tensor
		dst  *string
	}{
		{name: "url", t: url, dst: &o.URL},
		{name: "key", t: key, dst: &o.Key},
		{name: "org", t: org, dst: &o.Org},
	} {
		if field.t == nil {
			continue
		}
		s, err := field.t.ScalarString()
		if err != nil {
			return Overrides{}, phonnxerrors.With(fmt.Errorf("%s must be a scalar: %w", field.name, err), phonnxerrors.ErrUsage)
		}
		*field.dst = s
	}
	return o, nil
}

// Endpoint is the connection configuration shared by the LLM operators. URL, Key and Org
// are "env://NAME" references; literal values are passed per call through Overrides.
type Endpoint struct {
	URL           string
	DefaultURL    string
	Key           string
	Org           string
	HeaderKeyAuth string
	HeaderKeyOrg  string
	// CustomHeader is a JSON object replacing the default Content-Type header.
	CustomHeader string `validate:"omitempty,json"`
}

// RequestInfo is where and with which headers a request is sent.
type RequestInfo struct {
	URL     string
	Headers map[string]string
}

// PrepareRequestInfo resolves the destination and headers of an exchange. The URL comes from
// the override, then the endpoint URL, then its default. The key and organisation are
// resolved the same way and sent under HeaderKeyAuth and HeaderKeyOrg unless they resolve to
// "" or "-".
func PrepareRequestInfo(o Overrides, e Endpoint) (RequestInfo, error) {
	finalURL := ExtractHighestPriority(o.URL, e.URL)
	if finalURL == "" {
		finalURL = e.DefaultURL
	}
	if finalURL == "" {
		return RequestInfo{}, phonnxerrors.Usagef("url must be provided")
	}

	headers := map[string]string{}
	if e.CustomHeader != "" {
		if err := json.Unmarshal([]byte(e.CustomHeader), &headers); err != nil {
			return RequestInfo{}, phonnxerrors.With(fmt.Errorf("custom header must be a JSON object of strings: %w", err), phonnxerrors.ErrUsage)
		}
	} else {
		headers["Content-Type"] = defaultContentType
	}

	if key := ExtractHighestPriority(o.Key, e.Key); key != "" && key != unset && e.HeaderKeyAuth != "" {
		headers[e.HeaderKeyAuth] = key
	}
	if org := ExtractHighestPriority(o.Org, e.Org); org != "" && org != unset && e.HeaderKeyOrg != "" {
		headers[e.HeaderKeyOrg] = org
	}

	return RequestInfo{URL: finalURL, Headers: headers}, nil
}

// withBearer prefixes the Authorization header with "Bearer " unless it already carries it.
func withBearer(headers map[string]string) {
	auth, ok := headers["Authorization"]
	if ok && !strings.Contains(auth, "Bearer") {
		headers["Authorization"] = "Bearer " + auth
	}
}
