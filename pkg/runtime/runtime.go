// Package runtime runs a computation graph whose node names follow the naming convention of
// package naming. The names alone decide which inputs are regular columns, which are
// dynamic attributes, how each column is preprocessed and which outputs are returned.
package runtime

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/beastbyte/phonnx/pkg/columntype"
	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/logger"
	"github.com/beastbyte/phonnx/pkg/naming"
	"github.com/beastbyte/phonnx/pkg/telemetry"
	"github.com/beastbyte/phonnx/pkg/tensor"
)

var tracer = otel.Tracer("phonnx/pkg/runtime")

var (
	runsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phonnx_runtime_runs_total",
		Help: "The total number of runtime executions, partitioned by output mode and status.",
	}, []string{"mode", "status"})

	runDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "phonnx_runtime_run_duration_ms",
		Help:    "Time (in ms) spent in a runtime execution including the engine call.",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000}, // milliseconds
	})
)

type OutputMode string

const (
	// OutputAll returns every declared output.
	OutputAll OutputMode = "all"
	// OutputFinal returns the outputs of the last pipeline stage only.
	OutputFinal OutputMode = "final"
)

// ParseOutputMode returns a usage error for anything but "all" and "final".
func ParseOutputMode(s string) (OutputMode, error) {
	mode := OutputMode(s)
	if err := mode.validate(); err != nil {
		return "", err
	}
	return mode, nil
}

func (m OutputMode) validate() error {
	switch m {
	case OutputAll, OutputFinal:
		return nil
	}
	return phonnxerrors.Usagef("expected output mode to be one of [all, final], got '%s'", m)
}

type Runtime struct {
	engine Engine
	logger logger.Logger
}

type RuntimeOption func(r *Runtime)

func WithLogger(l logger.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

func New(engine Engine, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		engine: engine,
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run prepares inputs and dynattrs for the engine and executes it once. Neither inputs nor
// dynattrs are modified. Dynamic attributes the caller leaves out default to [""].
func (r *Runtime) Run(ctx context.Context, inputs Inputs, dynattrs map[string]*tensor.Tensor, mode OutputMode) (_ []*tensor.Tensor, err error) {
	ctx, span := tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("output_mode", string(mode)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			telemetry.TraceError(span, err)
		}
		runsCounter.WithLabelValues(string(mode), status).Inc()
		runDurationHistogram.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if err := mode.validate(); err != nil {
		return nil, err
	}
	if inputs == nil {
		return nil, phonnxerrors.Usagef("inputs must be built with FromTensor, FromList or FromMap")
	}

	declared := r.engine.Inputs()
	names := make([]string, len(declared))
	for i, info := range declared {
		names[i] = info.Name
	}
	regular, dynattrNames := naming.Classify(names)

	values, err := inputs.resolve(regular)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]*tensor.Tensor, len(dynattrNames))
	maps.Copy(attrs, dynattrs)
	for _, name := range dynattrNames {
		if _, ok := attrs[name]; ok {
			continue
		}
		if v, ok := values[name]; ok {
			attrs[name] = v
			delete(values, name)
			continue
		}
		attrs[name] = tensor.Strings("")
	}

	r.preprocess(values, regular)

	for name, v := range attrs {
		if v == nil {
			return nil, phonnxerrors.Usagef("dynamic attribute %s is nil", name)
		}
		if v.Size() != 1 {
			return nil, phonnxerrors.Usagef("%s must have a single element, got %d", name, v.Size())
		}
	}

	maps.Copy(values, attrs)

	if err := finalize(values, declared); err != nil {
		return nil, err
	}

	outputNames := r.engine.Outputs()
	if mode == OutputFinal {
		outputNames, err = naming.SelectFinalOutputs(outputNames)
		if err != nil {
			return nil, err
		}
	}

	if len(values) != len(declared) {
		return nil, phonnxerrors.Usagef("expected %d inputs, got %d", len(declared), len(values))
	}

	r.logger.DebugWithContext(ctx, "running engine",
		zap.Strings("regular_inputs", regular),
		zap.Strings("dynamic_attributes", dynattrNames),
		zap.Strings("outputs", outputNames),
	)

	results, err := r.engine.Run(ctx, outputNames, values)
	if err != nil {
		return nil, fmt.Errorf("engine run failed: %w", err)
	}
	return results, nil
}

// preprocess applies the column type transform of every regular input present in values.
func (r *Runtime) preprocess(values map[string]*tensor.Tensor, regular []string) {
	for _, name := range regular {
		v, ok := values[name]
		if !ok {
			continue
		}
		parsed, err := naming.Parse(name)
		if err != nil {
			// Classify only returns names that parse.
			continue
		}
		ct := columntype.Resolve(parsed.ColumnTypeCode)
		values[name] = columntype.Apply(ct, v)
		r.logger.Debug("preprocessed input", zap.String("input", name), zap.Stringer("column_type", ct))
	}
}

// finalize checks every declared input is present and coerces it to its declared type.
func finalize(values map[string]*tensor.Tensor, declared []NodeInfo) error {
	for _, info := range declared {
		v, ok := values[info.Name]
		if !ok {
			return phonnxerrors.Usagef("input %s is missing", info.Name)
		}
		et, err := tensor.ParseElementType(info.Type)
		if err != nil {
			return fmt.Errorf("input %s: %w", info.Name, err)
		}
		coerced, err := v.As(et)
		if err != nil {
			return fmt.Errorf("failed to coerce input %s to %s: %w", info.Name, et, err)
		}
		values[info.Name] = coerced
	}
	return nil
}
