package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/beastbyte/phonnx/internal/build"
	"github.com/beastbyte/phonnx/internal/config"
	"github.com/beastbyte/phonnx/pkg/logger"
	"github.com/beastbyte/phonnx/pkg/ops"
	"github.com/beastbyte/phonnx/pkg/telemetry"
	"github.com/beastbyte/phonnx/pkg/transport"
)

const (
	// stdinArg selects standard input wherever a file argument is accepted.
	stdinArg     = "-"
	envRefPrefix = "env://"
)

// readDocument decodes a YAML or JSON document from a file, or from stdin when path is "-".
func readDocument(command *cobra.Command, path string) (any, error) {
	var (
		raw []byte
		err error
	)
	if path == stdinArg {
		raw, err = io.ReadAll(command.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return decodeDocument(raw)
}

// decodeDocument converts YAML (a superset of JSON) into the values encoding/json produces.
func decodeDocument(raw []byte) (any, error) {
	jsonBytes, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	var doc any
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func writeJSON(command *cobra.Command, v any) error {
	encoder := json.NewEncoder(command.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// exchangeContext holds what every command talking to a remote service needs. Close must be
// called once the command is done.
type exchangeContext struct {
	Config *config.Config
	Logger logger.Logger
	Client *transport.Client

	shutdownTracing func() error
}

func newExchangeContext() (*exchangeContext, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := tracingConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(cfg.TransportClientConfig(), transport.WithLogger(log))

	return &exchangeContext{Config: cfg, Logger: log, Client: client, shutdownTracing: shutdownTracing}, nil
}

func (e *exchangeContext) Close() {
	if err := e.shutdownTracing(); err != nil {
		e.Logger.Warn("failed to shut down tracing", zap.Error(err))
	}
}

// tracingConfig returns the function that must be called to shut down tracing.
func tracingConfig(cfg *config.Config, log logger.Logger) (func() error, error) {
	if !cfg.Trace.Enabled {
		telemetry.DisableTracing()
		return func() error { return nil }, nil
	}

	log.Debug("tracing enabled",
		zap.Float64("sample_ratio", cfg.Trace.SampleRatio),
		zap.String("endpoint", cfg.Trace.OTLP.Endpoint),
		zap.Bool("tls", cfg.Trace.OTLP.TLS.Enabled))

	options := []telemetry.TracerOption{
		telemetry.WithOTLPEndpoint(cfg.Trace.OTLP.Endpoint),
		telemetry.WithAttributes(
			semconv.ServiceNameKey.String(cfg.Trace.ServiceName),
			semconv.ServiceVersionKey.String(build.Version),
		),
		telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
	}
	if !cfg.Trace.OTLP.TLS.Enabled {
		options = append(options, telemetry.WithOTLPInsecure())
	}

	tp, err := telemetry.NewTracerProvider(options...)
	if err != nil {
		return nil, err
	}
	return func() error { return telemetry.Shutdown(tp) }, nil
}

func (e *exchangeContext) opOptions() []ops.Option {
	return []ops.Option{
		ops.WithLogger(e.Logger),
		ops.WithConcurrency(e.Config.Ops.Concurrency),
	}
}

// bindEndpointFlags registers the flags shared by the commands that resolve request info.
func bindEndpointFlags(command *cobra.Command) {
	flags := command.Flags()
	flags.String("url", "", "the service url, or env://NAME to read it from an environment variable")
	flags.String("key", "", "the authentication key, or env://NAME")
	flags.String("org", "", "the organisation, or env://NAME")
	flags.String("header-key-auth", "Authorization", "the header carrying the authentication key")
	flags.String("header-key-org", "", "the header carrying the organisation")
	flags.String("custom-header", "", "a JSON object of extra headers")
	flags.String("extra-params", "", "a JSON object merged into every request body")
	flags.String("prompt-location", "prompt", "the comma separated path the prompt is written to")
}

// endpointFromFlags splits the url, key and org flags into env references, kept on the
// endpoint, and literal values, passed as overrides.
func endpointFromFlags(command *cobra.Command) (ops.Endpoint, ops.Overrides) {
	flags := command.Flags()
	headerKeyAuth, _ := flags.GetString("header-key-auth")
	headerKeyOrg, _ := flags.GetString("header-key-org")
	customHeader, _ := flags.GetString("custom-header")

	endpoint := ops.Endpoint{
		HeaderKeyAuth: headerKeyAuth,
		HeaderKeyOrg:  headerKeyOrg,
		CustomHeader:  customHeader,
	}
	var overrides ops.Overrides
	for _, field := range []struct {
		flag     string
		ref      *string
		override *string
	}{
		{flag: "url", ref: &endpoint.URL, override: &overrides.URL},
		{flag: "key", ref: &endpoint.Key, override: &overrides.Key},
		{flag: "org", ref: &endpoint.Org, override: &overrides.Org},
	} {
		value, _ := flags.GetString(field.flag)
		if strings.HasPrefix(value, envRefPrefix) {
			*field.ref = value
		} else {
			*field.override = value
		}
	}
	return endpoint, overrides
}
