// Package ops implements the request/response operators a graph delegates to remote text
// services, together with the string operators that post-process their answers.
//
// Every LLM operator builds its request documents with package pathcodec, sends them through
// a transport.Exchanger and reads its answer back out of the response document.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/pool"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/logger"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type options struct {
	logger      logger.Logger
	concurrency int
}

type Option func(o *options)

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConcurrency bounds the number of exchanges an operator runs at once. Values below 1
// mean one exchange at a time.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:      logger.NewNoopLogger(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

func validateConfig(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		return phonnxerrors.With(fmt.Errorf("invalid configuration: %w", err), phonnxerrors.ErrUsage)
	}
	return nil
}

// forEach runs fn for every index in [0, n) on a bounded pool and stops at the first error.
func forEach(ctx context.Context, n, concurrency int, fn func(ctx context.Context, i int) error) error {
	p := pool.New().WithContext(ctx)
	p.WithCancelOnError()
	p.WithFirstError()
	p.WithMaxGoroutines(concurrency)

	for i := 0; i < n; i++ {
		p.Go(func(ctx context.Context) error {
			return fn(ctx, i)
		})
	}
	return p.Wait()
}

func parseExtraParams(raw string) (map[string]any, error) {
	params := map[string]any{}
	if raw == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, phonnxerrors.With(fmt.Errorf("extra params must be a JSON object: %w", err), phonnxerrors.ErrUsage)
	}
	return params, nil
}

// requestBody turns a built document into the body sent to the service. Documents that are
// not objects are sent under "inputs"; params are merged at the top level.
func requestBody(doc any, params map[string]any) map[string]any {
	body, ok := doc.(map[string]any)
	if !ok {
		body = map[string]any{"inputs": doc}
	}
	maps.Copy(body, params)
	return body
}

// singleColumn returns the strings of a (batch, 1) tensor.
func singleColumn(t *tensor.Tensor, what string) ([]string, error) {
	if t == nil {
		return nil, phonnxerrors.Usagef("%s tensor is nil", what)
	}
	shape := t.Shape()
	if len(shape) != 2 || shape[1] != 1 {
		return nil, phonnxerrors.Usagef("%s must be a 2D tensor (batch_size, 1), got shape %v", what, shape)
	}
	strs, err := t.As(tensor.String)
	if err != nil {
		return nil, err
	}
	out := make([]string, t.Size())
	for i := range out {
		out[i] = strs.At(i).(string)
	}
	return out, nil
}

// stringRows returns the rows of a (batch, columns) tensor as strings.
func stringRows(t *tensor.Tensor, what string, columns int) ([][]string, error) {
	if t == nil {
		return nil, phonnxerrors.Usagef("%s tensor is nil", what)
	}
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, phonnxerrors.Usagef("%s must be a 2D tensor (batch_size, num_messages), got shape %v", what, shape)
	}
	if shape[1] != columns {
		return nil, phonnxerrors.Usagef("%s has %d columns but %d roles are declared", what, shape[1], columns)
	}
	strs, err := t.As(tensor.String)
	if err != nil {
		return nil, err
	}
	rows, err := strs.Rows()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.(string)
		}
	}
	return out, nil
}

func stringColumn(values []string) *tensor.Tensor {
	return tensor.Column(toAny(values)...)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func splitList(s string) []string {
	return strings.Split(s, ",")
}
