//go:generate mockgen -source transport.go -destination ../../internal/mocks/mock_exchanger.go -package mocks Exchanger

// Package transport performs the JSON request/response exchanges issued by ops.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	phonnxerrors "github.com/beastbyte/phonnx/pkg/errors"
	"github.com/beastbyte/phonnx/pkg/logger"
	"github.com/beastbyte/phonnx/pkg/telemetry"
)

var tracer = otel.Tracer("phonnx/pkg/transport")

var (
	attemptsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phonnx_transport_attempts_total",
		Help: "The total number of HTTP attempts made by exchanges, partitioned by outcome.",
	}, []string{"outcome"})

	exchangeDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phonnx_transport_exchange_duration_ms",
		Help:    "Time (in ms) spent in an exchange including every retry.",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 30000, 120000}, // milliseconds
	}, []string{"status"})
)

const (
	defaultMaxRetries            = 3
	defaultMaxWaitBetweenRetries = 60 * time.Second
	defaultTimeout               = 600 * time.Second
	defaultInitialInterval       = time.Second
)

// ErrDomainNotAllowed is returned when the destination host is not in the allow-list.
var ErrDomainNotAllowed = errors.New("domain is not in the allow-list")

// Exchanger sends one document and returns the decoded response document.
type Exchanger interface {
	Exchange(ctx context.Context, url string, payload any, headers map[string]string) (any, error)
}

type Config struct {
	// MaxRetries is the total number of attempts.
	MaxRetries            int
	MaxWaitBetweenRetries time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Allowlist restricts destination hosts (host or host:port). Empty allows every host.
	Allowlist []string
	// RequestsPerSecond paces attempts across the client. Zero disables pacing.
	RequestsPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:            defaultMaxRetries,
		MaxWaitBetweenRetries: defaultMaxWaitBetweenRetries,
		Timeout:               defaultTimeout,
	}
}

// AttemptError records why one attempt failed.
type AttemptError struct {
	Attempt    int
	StatusCode int
	Body       string
	Err        error
}

func (a *AttemptError) Error() string {
	if a.Err != nil {
		return fmt.Sprintf("Attempt %d: An exception occurred: %v", a.Attempt, a.Err)
	}
	return fmt.Sprintf("Attempt %d: Failed with status code %d: %s", a.Attempt, a.StatusCode, a.Body)
}

func (a *AttemptError) Unwrap() error {
	return a.Err
}

// ExchangeError is returned once every attempt failed.
type ExchangeError struct {
	Attempts []*AttemptError
}

func (e *ExchangeError) Error() string {
	lines := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		lines[i] = a.Error()
	}
	return fmt.Sprintf("Failed to make a request after %d retries. Errors:\n%s", len(e.Attempts), strings.Join(lines, "\n"))
}

func (e *ExchangeError) Is(target error) bool {
	return target == phonnxerrors.ErrTransportFailure
}

type Client struct {
	config          Config
	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          logger.Logger
	initialInterval time.Duration
}

var _ Exchanger = (*Client)(nil)

type ClientOption func(c *Client)

func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInitialInterval sets the wait after the first failed attempt. Later waits double.
func WithInitialInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.initialInterval = d
	}
}

func NewClient(config Config, opts ...ClientOption) *Client {
	c := &Client{
		config:          config,
		logger:          logger.NewNoopLogger(),
		initialInterval: defaultInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config.MaxRetries < 1 {
		c.config.MaxRetries = 1
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if c.config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.config.RequestsPerSecond), 1)
	}
	return c
}

// Exchange POSTs payload as JSON and decodes a 200 response. Any other status or transport
// error is retried with exponential backoff until MaxRetries attempts have been made.
func (c *Client) Exchange(ctx context.Context, rawURL string, payload any, headers map[string]string) (any, error) {
	exchangeID := ulid.Make().String()
	ctx, span := tracer.Start(ctx, "Exchange", trace.WithAttributes(
		attribute.String("exchange_id", exchangeID),
		attribute.String("url", rawURL),
	))
	defer span.End()

	if err := c.checkAllowlist(rawURL); err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	start := time.Now()
	log := c.logger.With(zap.String("exchange_id", exchangeID), zap.String("url", rawURL))
	log.DebugWithContext(ctx, "exchange started", zap.Int("payload_bytes", len(body)))

	var (
		doc      any
		failures []*AttemptError
		attempt  int
	)

	backoffPolicy := &backoff.ExponentialBackOff{
		InitialInterval:     c.initialInterval,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.config.MaxWaitBetweenRetries,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	backoffPolicy.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(backoffPolicy, uint64(c.config.MaxRetries-1)), ctx)

	err = backoff.Retry(
		func() error {
			attempt++
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return backoff.Permanent(err)
				}
			}

			var failure *AttemptError
			doc, failure = c.attempt(ctx, attempt, rawURL, body, headers)
			if failure == nil {
				attemptsCounter.WithLabelValues("success").Inc()
				return nil
			}

			attemptsCounter.WithLabelValues("failure").Inc()
			failures = append(failures, failure)
			log.WarnWithContext(ctx, "exchange attempt failed", zap.Int("attempt", attempt), zap.Error(failure))
			return failure
		},
		policy,
	)

	if err != nil {
		exchangeDurationHistogram.WithLabelValues("failure").Observe(float64(time.Since(start).Milliseconds()))
		telemetry.TraceError(span, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			if len(failures) > 0 {
				return nil, fmt.Errorf("%w: %w", ctxErr, &ExchangeError{Attempts: failures})
			}
			return nil, ctxErr
		}
		if len(failures) == 0 {
			return nil, err
		}
		return nil, &ExchangeError{Attempts: failures}
	}

	exchangeDurationHistogram.WithLabelValues("success").Observe(float64(time.Since(start).Milliseconds()))
	log.DebugWithContext(ctx, "exchange succeeded", zap.Int("attempts", attempt))
	return doc, nil
}

func (c *Client) attempt(ctx context.Context, n int, rawURL string, body []byte, headers map[string]string) (any, *AttemptError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, &AttemptError{Attempt: n, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AttemptError{Attempt: n, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AttemptError{Attempt: n, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AttemptError{Attempt: n, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var doc any
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return nil, &AttemptError{Attempt: n, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return doc, nil
}

func (c *Client) checkAllowlist(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return phonnxerrors.Usagef("invalid url '%s': %v", rawURL, err)
	}
	if len(c.config.Allowlist) > 0 && !slices.Contains(c.config.Allowlist, u.Host) {
		return fmt.Errorf("%w: %s", ErrDomainNotAllowed, u.Host)
	}
	return nil
}
