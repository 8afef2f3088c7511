package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolReferenceContent is a tool_reference content block:
//
//	{"type": "tool_reference", "tool_name": "..."}
//
// It embeds *mcp.TextContent to satisfy mcp.Content, whose marker method is
// unexported, and overrides the wire encoding.
type ToolReferenceContent struct {
	*mcp.TextContent
	ToolName string
}

func NewToolReferenceContent(toolName string) *ToolReferenceContent {
	return &ToolReferenceContent{TextContent: &mcp.TextContent{}, ToolName: toolName}
}

func (c *ToolReferenceContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		ToolName string `json:"tool_name"`
	}{Type: "tool_reference", ToolName: c.ToolName})
}

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"Regex pattern or plain text matched against tool names, descriptions and keywords"`
	Category string `json:"category,omitempty" jsonschema:"Filter to one category (issues, labels, repos, activity, governance, search)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 5)"`
}

type toolSearchOutput struct {
	Query      string          `json:"query"`
	Results    []*SearchResult `json:"results"`
	Count      int             `json:"count"`
	TotalTools int             `json:"total_tools"`
}

type toolListInput struct {
	Category     string `json:"category,omitempty" jsonschema:"Filter to one category"`
	DeferredOnly bool   `json:"deferred_only,omitempty" jsonschema:"Only list deferred tools"`
}

type toolListOutput struct {
	Tools []*ToolMetadata `json:"tools"`
	Count int             `json:"count"`
}

func (s *Server) registerSearchTools() error {
	if err := addTool(s, &ToolMetadata{
		Name:        "tool_search",
		Description: "Search the available tools by name, description or keyword. Returns tool_reference blocks for the matches.",
		Category:    CategorySearch,
	}, s.handleToolSearch); err != nil {
		return err
	}
	return addTool(s, &ToolMetadata{
		Name:        "tool_list",
		Description: "List every registered tool with its category and whether it is governed.",
		Category:    CategorySearch,
	}, s.handleToolList)
}

func (s *Server) handleToolSearch(ctx context.Context, req *mcp.CallToolRequest, args toolSearchInput) (*mcp.CallToolResult, toolSearchOutput, error) {
	if args.Query == "" {
		return nil, toolSearchOutput{}, fmt.Errorf("query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}

	var results []*SearchResult
	if args.Category != "" {
		results = s.registry.SearchByCategory(args.Query, ToolCategory(args.Category))
	} else {
		results = s.registry.Search(args.Query)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Tool.Name)
	}

	text := fmt.Sprintf("No tools found matching: %s", args.Query)
	if len(names) > 0 {
		text = fmt.Sprintf("Found %d tool(s) for query '%s': %s", len(names), args.Query, strings.Join(names, ", "))
	}
	content := []mcp.Content{&mcp.TextContent{Text: text}}
	for _, name := range names {
		content = append(content, NewToolReferenceContent(name))
	}

	return &mcp.CallToolResult{Content: content}, toolSearchOutput{
		Query:      args.Query,
		Results:    results,
		Count:      len(results),
		TotalTools: s.registry.Count(),
	}, nil
}

func (s *Server) handleToolList(ctx context.Context, req *mcp.CallToolRequest, args toolListInput) (*mcp.CallToolResult, toolListOutput, error) {
	var tools []*ToolMetadata
	switch {
	case args.Category != "":
		tools = s.registry.ListByCategory(ToolCategory(args.Category))
	case args.DeferredOnly:
		tools = s.registry.ListDeferred()
	default:
		tools = s.registry.List()
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d tools", len(tools))}},
	}, toolListOutput{Tools: tools, Count: len(tools)}, nil
}
