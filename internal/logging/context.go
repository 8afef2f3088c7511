package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Call identifies one governed tool invocation.
type Call struct {
	ID   string
	Tool string
}

type callCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, '.', '-' or '_')", name)
	}
	return nil
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if call, ok := CallFromContext(ctx); ok {
		fields = append(fields,
			zap.String("call.id", call.ID),
			zap.String("call.tool", call.Tool),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

// NewCallContext adds the current tool invocation to ctx, rejecting empty
// or malformed ids.
func NewCallContext(ctx context.Context, call Call) (context.Context, error) {
	if err := validateID(call.ID, "call.ID"); err != nil {
		return ctx, err
	}
	if err := validateID(call.Tool, "call.Tool"); err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, callCtxKey{}, call), nil
}

// WithCall is NewCallContext for ids known to be valid.
// Panics if the call id or tool name is empty or malformed.
func WithCall(ctx context.Context, call Call) context.Context {
	ctx, err := NewCallContext(ctx, call)
	if err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return ctx
}

// CallFromContext returns the invocation stored by WithCall.
func CallFromContext(ctx context.Context) (Call, bool) {
	call, ok := ctx.Value(callCtxKey{}).(Call)
	return call, ok
}

// WithRequestID adds an HTTP request id to ctx.
// Panics if requestID is empty or malformed.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
