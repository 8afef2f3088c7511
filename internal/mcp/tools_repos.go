package mcp

import (
	"context"

	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"github.com/fyrsmithlabs/toolgate/internal/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	toolBranchesList    = "repos_list_branches"
	toolBranchProtected = "repos_get_branch_protection"
)

type branchesListInput struct {
	Owner     string `json:"owner" jsonschema:"The account owner of the repository. The name is not case sensitive."`
	Repo      string `json:"repo" jsonschema:"The name of the repository without the .git extension. The name is not case sensitive."`
	Protected *bool  `json:"protected,omitempty" jsonschema:"true for protected branches only, false for unprotected only; omit for all"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"Results per page, max 100 (default 30)"`
	Page      int    `json:"page,omitempty" jsonschema:"Page number of the results (default 1)"`
}

type branchProtectionInput struct {
	Owner  string `json:"owner" jsonschema:"The account owner of the repository"`
	Repo   string `json:"repo" jsonschema:"The name of the repository without the .git extension"`
	Branch string `json:"branch" jsonschema:"The name of the branch. Wildcards are not allowed."`
}

func (s *Server) registerRepoTools() error {
	if err := addTool(s, &ToolMetadata{
		Name:        toolBranchesList,
		Description: "List branches in a GitHub repository, optionally only protected or unprotected ones. Rate limited; output is sanitized.",
		Category:    CategoryRepos,
		Governed:    true,
		Keywords:    []string{"github", "branches", "refs", "list"},
	}, s.handleBranchesList); err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        toolBranchProtected,
		Description: "Get the protection rules of a branch: required reviews, status checks, admin enforcement and push restrictions. Rate limited; output is sanitized.",
		Category:    CategoryRepos,
		Governed:    true,
		Keywords:    []string{"github", "branches", "protection", "rules"},
	}, s.handleBranchProtection)
}

func (s *Server) handleBranchesList(ctx context.Context, req *mcp.CallToolRequest, args branchesListInput) (*mcp.CallToolResult, toolOutput, error) {
	if err := sanitize.ValidateRepoRef(args.Owner, args.Repo); err != nil {
		return s.rejected(ctx, toolBranchesList, err)
	}
	if err := checkPaging(args.PerPage, args.Page); err != nil {
		return s.rejected(ctx, toolBranchesList, err)
	}
	return s.governed(ctx, toolBranchesList, func(ctx context.Context) (any, error) {
		return s.gh.ListBranches(ctx, upstream.ListBranchesParams(args))
	})
}

func (s *Server) handleBranchProtection(ctx context.Context, req *mcp.CallToolRequest, args branchProtectionInput) (*mcp.CallToolResult, toolOutput, error) {
	if err := sanitize.ValidateRepoRef(args.Owner, args.Repo); err != nil {
		return s.rejected(ctx, toolBranchProtected, err)
	}
	if err := sanitize.ValidateBranch(args.Branch); err != nil {
		return s.rejected(ctx, toolBranchProtected, err)
	}
	return s.governed(ctx, toolBranchProtected, func(ctx context.Context) (any, error) {
		return s.gh.GetBranchProtection(ctx, upstream.BranchProtectionParams(args))
	})
}
