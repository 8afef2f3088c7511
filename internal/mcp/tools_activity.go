package mcp

import (
	"context"

	"github.com/fyrsmithlabs/toolgate/internal/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const toolStarredList = "activity_list_repos_starred_by_authenticated_user"

type starredListInput struct {
	Sort      string `json:"sort,omitempty" jsonschema:"created sorts by when the repository was starred, updated by when it was last pushed to (default created)"`
	Direction string `json:"direction,omitempty" jsonschema:"Sort direction: asc or desc (default desc)"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"Results per page, max 100 (default 30)"`
	Page      int    `json:"page,omitempty" jsonschema:"Page number of the results (default 1)"`
}

func (in starredListInput) validate() error {
	switch in.Sort {
	case "", "created", "updated":
	default:
		return invalid("sort must be created or updated, got %q", in.Sort)
	}
	switch in.Direction {
	case "", "asc", "desc":
	default:
		return invalid("direction must be asc or desc, got %q", in.Direction)
	}
	return checkPaging(in.PerPage, in.Page)
}

func (s *Server) registerActivityTools() error {
	return addTool(s, &ToolMetadata{
		Name:        toolStarredList,
		Description: "List repositories the authenticated user has starred. Rate limited; output is sanitized.",
		Category:    CategoryActivity,
		Governed:    true,
		Keywords:    []string{"github", "stars", "starred", "repositories"},
	}, s.handleStarredList)
}

func (s *Server) handleStarredList(ctx context.Context, req *mcp.CallToolRequest, args starredListInput) (*mcp.CallToolResult, toolOutput, error) {
	if err := args.validate(); err != nil {
		return s.rejected(ctx, toolStarredList, err)
	}
	return s.governed(ctx, toolStarredList, func(ctx context.Context) (any, error) {
		return s.gh.ListStarred(ctx, upstream.ListStarredParams(args))
	})
}
