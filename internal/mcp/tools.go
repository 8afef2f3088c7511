package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/governance"
	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var errInvalidInput = errors.New("invalid input")

// toolOutput is the structured result of a governed tool.
type toolOutput struct {
	Result any `json:"result" jsonschema:"Sanitized upstream response"`
}

// addTool records meta in the registry and registers h with the MCP server.
func addTool[In, Out any](s *Server, meta *ToolMetadata, h mcp.ToolHandlerFor[In, Out]) error {
	if err := s.registry.Register(meta); err != nil {
		return err
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        meta.Name,
		Description: meta.Description,
		Meta:        s.toolMeta(meta),
	}, h)
	return nil
}

func (s *Server) toolMeta(meta *ToolMetadata) mcp.Meta {
	return mcp.Meta{
		"toolgate/category": string(meta.Category),
		"toolgate/governed": meta.Governed,
		"defer_loading":     meta.DeferLoading,
	}
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	for _, register := range []func() error{
		s.registerIssueTools,
		s.registerRepoTools,
		s.registerActivityTools,
		s.registerGovernanceTools,
		s.registerSearchTools,
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// governed runs op as tool under the governor. op's result is normalized
// to a JSON tree so the sanitizer reaches every string in it.
func (s *Server) governed(ctx context.Context, tool string, op func(context.Context) (any, error)) (*mcp.CallToolResult, toolOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, tool)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, tool)
		s.metrics.RecordInvocation(ctx, tool, time.Since(start), toolErr)
	}()

	result, err := governance.Call(ctx, s.gov, tool, func(ctx context.Context) (any, error) {
		v, err := op(ctx)
		if err != nil {
			return nil, err
		}
		return sanitize.Normalize(v)
	})
	if err != nil {
		toolErr = err
		s.logger.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
		return errorResult(err), toolOutput{}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		toolErr = err
		return errorResult(fmt.Errorf("encoding result: %w", err)), toolOutput{}, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}, toolOutput{Result: result}, nil
}

// rejected reports invalid arguments without touching the rate limiter.
func (s *Server) rejected(ctx context.Context, tool string, err error) (*mcp.CallToolResult, toolOutput, error) {
	s.metrics.RecordInvocation(ctx, tool, 0, err)
	return errorResult(err), toolOutput{}, nil
}

// errorResult reports err to the client as a tool error. The message is
// sanitized like any other output.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitize.String(err.Error())}},
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidInput, fmt.Sprintf(format, args...))
}
