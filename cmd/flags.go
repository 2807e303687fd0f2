package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beastbyte/phonnx/cmd/util"
	"github.com/beastbyte/phonnx/internal/config"
)

// bindConfigFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindConfigFlags(command *cobra.Command) {
	defaultConfig := config.DefaultConfig()
	flags := command.PersistentFlags()

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")
	util.MustBindPFlag("log.format", flags.Lookup("log-format"))
	util.MustBindEnv("log.format", "PHONNX_LOG_FORMAT")

	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")
	util.MustBindPFlag("log.level", flags.Lookup("log-level"))
	util.MustBindEnv("log.level", "PHONNX_LOG_LEVEL")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	util.MustBindPFlag("trace.enabled", flags.Lookup("trace-enabled"))
	util.MustBindEnv("trace.enabled", "PHONNX_TRACE_ENABLED")

	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLP.Endpoint, "the endpoint of the trace collector")
	util.MustBindPFlag("trace.otlp.endpoint", flags.Lookup("trace-otlp-endpoint"))
	util.MustBindEnv("trace.otlp.endpoint", "PHONNX_TRACE_OTLP_ENDPOINT")

	flags.Bool("trace-otlp-tls-enabled", defaultConfig.Trace.OTLP.TLS.Enabled, "use TLS connection for trace collector")
	util.MustBindPFlag("trace.otlp.tls.enabled", flags.Lookup("trace-otlp-tls-enabled"))
	util.MustBindEnv("trace.otlp.tls.enabled", "PHONNX_TRACE_OTLP_TLS_ENABLED")

	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none.")
	util.MustBindPFlag("trace.sampleRatio", flags.Lookup("trace-sample-ratio"))
	util.MustBindEnv("trace.sampleRatio", "PHONNX_TRACE_SAMPLE_RATIO", "PHONNX_TRACE_SAMPLERATIO")

	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces")
	util.MustBindPFlag("trace.serviceName", flags.Lookup("trace-service-name"))
	util.MustBindEnv("trace.serviceName", "PHONNX_TRACE_SERVICE_NAME", "PHONNX_TRACE_SERVICENAME")

	flags.Int("transport-max-retries", defaultConfig.Transport.MaxRetries, "the number of attempts made for one request")
	util.MustBindPFlag("transport.maxRetries", flags.Lookup("transport-max-retries"))
	util.MustBindEnv("transport.maxRetries", "PHONNX_TRANSPORT_MAX_RETRIES", "PHONNX_TRANSPORT_MAXRETRIES")

	flags.Duration("transport-max-wait-between-retries", defaultConfig.Transport.MaxWaitBetweenRetries, "the upper bound of the wait between two attempts")
	util.MustBindPFlag("transport.maxWaitBetweenRetries", flags.Lookup("transport-max-wait-between-retries"))
	util.MustBindEnv("transport.maxWaitBetweenRetries", "PHONNX_TRANSPORT_MAX_WAIT_BETWEEN_RETRIES", "PHONNX_TRANSPORT_MAXWAITBETWEENRETRIES")

	flags.Duration("transport-timeout", defaultConfig.Transport.Timeout, "the timeout of a single attempt")
	util.MustBindPFlag("transport.timeout", flags.Lookup("transport-timeout"))
	util.MustBindEnv("transport.timeout", "PHONNX_TRANSPORT_TIMEOUT")

	flags.StringSlice("transport-allowlist", defaultConfig.Transport.Allowlist, "the hosts requests may be sent to, empty allows every host")
	util.MustBindPFlag("transport.allowlist", flags.Lookup("transport-allowlist"))
	util.MustBindEnv("transport.allowlist", "PHONNX_TRANSPORT_ALLOWLIST")

	flags.Float64("transport-requests-per-second", defaultConfig.Transport.RequestsPerSecond, "the maximum rate of attempts, 0 disables pacing")
	util.MustBindPFlag("transport.requestsPerSecond", flags.Lookup("transport-requests-per-second"))
	util.MustBindEnv("transport.requestsPerSecond", "PHONNX_TRANSPORT_REQUESTS_PER_SECOND", "PHONNX_TRANSPORT_REQUESTSPERSECOND")

	flags.Int("ops-concurrency", defaultConfig.Ops.Concurrency, "the number of rows exchanged in parallel")
	util.MustBindPFlag("ops.concurrency", flags.Lookup("ops-concurrency"))
	util.MustBindEnv("ops.concurrency", "PHONNX_OPS_CONCURRENCY")
}

// ReadConfig merges defaults, config.yaml, environment variables and flags, in increasing
// order of precedence.
func ReadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	return cfg, nil
}
