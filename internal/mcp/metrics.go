package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/ratelimit"
	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"github.com/google/go-github/v57/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/toolgate/internal/mcp"

// Metrics holds the per-tool OTEL instruments.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics creates instruments on meter, or on the global meter provider
// when meter is nil.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.invocations, err = m.meter.Int64Counter(
		"toolgate.mcp.tool.invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"toolgate.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations, including rate-limit back-off"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"toolgate.mcp.tool.errors_total",
		metric.WithDescription("Total number of MCP tool errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"toolgate.mcp.tool.active_requests",
		metric.WithDescription("Number of in-flight MCP tool requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

// RecordInvocation records one finished call of toolName.
func (m *Metrics) RecordInvocation(ctx context.Context, toolName string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("tool", toolName))
	if m.invocations != nil {
		m.invocations.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("reason", categorizeError(err)),
		))
	}
}

func (m *Metrics) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

func (m *Metrics) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// categorizeError maps err to a low-cardinality reason label.
func categorizeError(err error) string {
	var (
		ghErr    *github.ErrorResponse
		rlErr    *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ratelimit.ErrInvalidKey), errors.Is(err, ratelimit.ErrInvalidPolicy):
		return "config_error"
	case errors.Is(err, errInvalidInput),
		errors.Is(err, sanitize.ErrInvalidOwner),
		errors.Is(err, sanitize.ErrInvalidRepo),
		errors.Is(err, sanitize.ErrInvalidState),
		errors.Is(err, sanitize.ErrInvalidBranch),
		errors.Is(err, sanitize.ErrPathTraversal):
		return "validation_error"
	case errors.Is(err, github.ErrBranchNotProtected):
		return "not_found"
	case errors.As(err, &rlErr), errors.As(err, &abuseErr):
		return "upstream_rate_limited"
	case errors.As(err, &ghErr):
		return upstreamReason(ghErr.Response)
	default:
		return "internal_error"
	}
}

func upstreamReason(resp *http.Response) string {
	if resp == nil {
		return "upstream_error"
	}
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "auth_error"
	case code == http.StatusNotFound || code == http.StatusGone:
		return "not_found"
	case code == http.StatusUnprocessableEntity:
		return "validation_error"
	case code == http.StatusTooManyRequests:
		return "upstream_rate_limited"
	default:
		return "upstream_error"
	}
}
