package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/logging"
	"github.com/fyrsmithlabs/toolgate/internal/ratelimit"
	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Wrap returns op governed under key. The key, the policy currently
// resolved for it, and op are validated now; each invocation then uses
// whatever policy is in effect at call time.
func Wrap[T any](g *Governor, key string, op func(context.Context) (T, error)) (func(context.Context) (T, error), error) {
	if g == nil {
		return nil, errors.New("governor is required")
	}
	if op == nil {
		return nil, errors.New("operation is required")
	}
	if key == "" {
		return nil, ratelimit.ErrInvalidKey
	}
	if err := g.PolicyFor(key).Validate(); err != nil {
		return nil, fmt.Errorf("policy %q: %w", key, err)
	}

	inner := sanitize.Wrap(op)
	return func(ctx context.Context) (T, error) {
		return invoke(ctx, g, key, inner)
	}, nil
}

// Call governs a single invocation of op under key.
func Call[T any](ctx context.Context, g *Governor, key string, op func(context.Context) (T, error)) (T, error) {
	governed, err := Wrap(g, key, op)
	if err != nil {
		var zero T
		return zero, err
	}
	return governed(ctx)
}

func invoke[T any](ctx context.Context, g *Governor, key string, inner func(context.Context) (T, error)) (T, error) {
	var zero T

	id := g.newID()
	if cctx, err := logging.NewCallContext(ctx, logging.Call{ID: id, Tool: key}); err == nil {
		ctx = cctx
	}

	ctx, span := g.tracer.Start(ctx, "governed_call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("toolgate.key", key),
			attribute.String("toolgate.call_id", id),
		),
	)
	defer span.End()

	policy := g.PolicyFor(key)
	mode := g.Mode()
	logger := g.logger.With(logging.ContextFields(ctx)...)

	limited, err := ratelimit.Limit(g.tracker, key, policy, inner,
		ratelimit.WithMode(mode),
		ratelimit.WithLogger(logger.Underlying()),
		ratelimit.WithSleeper(g.sleep),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid governance config")
		return zero, err
	}

	start := time.Now()
	res, err := limited(ctx)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int64("toolgate.duration_ms", elapsed.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "governed call failed")
		g.logger.Debug(ctx, "governed call failed", zap.String("key", key), zap.Duration("duration", elapsed), zap.Error(err))
		return zero, err
	}

	g.logger.Debug(ctx, "governed call completed", zap.String("key", key), zap.Duration("duration", elapsed))
	return res, nil
}
