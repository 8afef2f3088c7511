package mcp

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/toolgate/internal/governance"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type governanceStatusInput struct {
	Tool string `json:"tool,omitempty" jsonschema:"Only report the window for this tool"`
}

type governanceStatusOutput struct {
	Status   governance.Status `json:"status" jsonschema:"Active policies and call windows"`
	Governed []string          `json:"governed_tools" jsonschema:"Tools subject to governance"`
}

func (s *Server) registerGovernanceTools() error {
	return addTool(s, &ToolMetadata{
		Name:        "governance_status",
		Description: "Report the rate-limit policy for each governed tool, the back-off mode, and how many calls remain in each active window.",
		Category:    CategoryGovernance,
		Keywords:    []string{"rate", "limit", "quota", "policy", "status"},
	}, s.handleGovernanceStatus)
}

func (s *Server) handleGovernanceStatus(ctx context.Context, req *mcp.CallToolRequest, args governanceStatusInput) (*mcp.CallToolResult, governanceStatusOutput, error) {
	st := s.gov.Status()
	if args.Tool != "" {
		windows := st.Windows[:0]
		for _, w := range st.Windows {
			if w.Key == args.Tool {
				windows = append(windows, w)
			}
		}
		st.Windows = windows
	}

	out := governanceStatusOutput{Status: st, Governed: s.registry.ListGoverned()}

	text := fmt.Sprintf("mode %s, default policy %s, %d active window(s)", st.Mode, st.Default, len(st.Windows))
	for _, w := range st.Windows {
		text += fmt.Sprintf("\n%s: %d/%d calls, %d remaining, resets in %s", w.Key, w.Calls, w.MaxCalls, w.Remaining, w.ResetIn)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, out, nil
}
