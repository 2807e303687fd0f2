// Package config contains all knobs and defaults used to configure the phonnx command line.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/beastbyte/phonnx/pkg/transport"
)

const (
	DefaultLogFormat   = "text"
	DefaultLogLevel    = "info"
	DefaultConcurrency = 1
)

var (
	logFormats = []string{"text", "json"}
	logLevels  = []string{"none", "debug", "info", "warn", "error"}
)

type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

// TransportConfig configures the outbound request/response exchange.
type TransportConfig struct {
	// MaxRetries is the total number of attempts made for one exchange.
	MaxRetries int

	// MaxWaitBetweenRetries caps the exponential wait between two attempts.
	MaxWaitBetweenRetries time.Duration

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// Allowlist restricts the hosts requests may be sent to. Empty allows every host.
	Allowlist []string

	// RequestsPerSecond paces attempts across the process. Zero disables pacing.
	RequestsPerSecond float64
}

type OpsConfig struct {
	// Concurrency is the number of rows exchanged in parallel by one op.
	Concurrency int
}

type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string
}

type OTLPTraceConfig struct {
	Endpoint string
	TLS      OTLPTraceTLSConfig
}

type OTLPTraceTLSConfig struct {
	Enabled bool
}

type Config struct {
	Log       LogConfig
	Trace     TraceConfig
	Transport TransportConfig
	Ops       OpsConfig
}

func (cfg *Config) Verify() error {
	if !slices.Contains(logFormats, cfg.Log.Format) {
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json']")
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error']")
	}

	if cfg.Trace.Enabled && cfg.Trace.OTLP.Endpoint == "" {
		return errors.New("config 'trace.otlp.endpoint' must be set when tracing is enabled")
	}

	if cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1 {
		return fmt.Errorf("config 'trace.sampleRatio' (%v) must be between 0 and 1", cfg.Trace.SampleRatio)
	}

	if cfg.Transport.MaxRetries < 1 {
		return fmt.Errorf("config 'transport.maxRetries' (%d) must be at least 1", cfg.Transport.MaxRetries)
	}

	if cfg.Transport.MaxWaitBetweenRetries <= 0 {
		return errors.New("config 'transport.maxWaitBetweenRetries' must be greater than zero")
	}

	if cfg.Transport.Timeout <= 0 {
		return errors.New("config 'transport.timeout' must be greater than zero")
	}

	if cfg.Transport.RequestsPerSecond < 0 {
		return fmt.Errorf("config 'transport.requestsPerSecond' (%v) cannot be negative", cfg.Transport.RequestsPerSecond)
	}

	if cfg.Ops.Concurrency < 1 {
		return fmt.Errorf("config 'ops.concurrency' (%d) must be at least 1", cfg.Ops.Concurrency)
	}

	return nil
}

// TransportClientConfig converts the transport section into a transport.Config.
func (cfg *Config) TransportClientConfig() transport.Config {
	return transport.Config{
		MaxRetries:            cfg.Transport.MaxRetries,
		MaxWaitBetweenRetries: cfg.Transport.MaxWaitBetweenRetries,
		Timeout:               cfg.Transport.Timeout,
		Allowlist:             slices.Clone(cfg.Transport.Allowlist),
		RequestsPerSecond:     cfg.Transport.RequestsPerSecond,
	}
}

// DefaultConfig is the configuration used when no flag, environment variable or config file
// overrides a value.
func DefaultConfig() *Config {
	transportDefaults := transport.DefaultConfig()

	return &Config{
		Log: LogConfig{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
				TLS: OTLPTraceTLSConfig{
					Enabled: false,
				},
			},
			SampleRatio: 0.2,
			ServiceName: "phonnx",
		},
		Transport: TransportConfig{
			MaxRetries:            transportDefaults.MaxRetries,
			MaxWaitBetweenRetries: transportDefaults.MaxWaitBetweenRetries,
			Timeout:               transportDefaults.Timeout,
			Allowlist:             []string{},
			RequestsPerSecond:     transportDefaults.RequestsPerSecond,
		},
		Ops: OpsConfig{
			Concurrency: DefaultConcurrency,
		},
	}
}
