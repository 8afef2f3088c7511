// Package logging provides structured logging for toolgate.
//
// # Overview
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Stderr output, leaving stdout to the MCP stdio transport
//   - Optional OpenTelemetry bridge output
//   - Automatic context field injection (trace_id, call.id, call.tool)
//   - Secret redaction keyed on the same keyword set the sanitizer uses
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithCall(ctx, logging.Call{ID: id, Tool: "issues_create"})
//	logger.Info(ctx, "tool invoked", zap.Duration("duration", d))
//
// Output includes the correlation fields:
//
//	{
//	  "ts": "2026-03-02T10:15:30Z",
//	  "level": "info",
//	  "msg": "tool invoked",
//	  "call.id": "4f0c…",
//	  "call.tool": "issues_create",
//	  "duration": "45ms"
//	}
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Warn(ctx, "rate limit exceeded", zap.String("key", "issues_create"))
//	tl.AssertLogged(t, zapcore.WarnLevel, "rate limit exceeded")
//	tl.AssertField(t, "rate limit exceeded", "key", "issues_create")
//
// Logger is safe for concurrent use.
package logging
