package mcp

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"github.com/fyrsmithlabs/toolgate/internal/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	toolIssuesList  = "issues_list_for_repo"
	toolIssueCreate = "issues_create"
	toolLabelsList  = "issues_list_labels_for_repo"
)

type issuesListInput struct {
	Owner     string `json:"owner" jsonschema:"The account owner of the repository. The name is not case sensitive."`
	Repo      string `json:"repo" jsonschema:"The name of the repository without the .git extension. The name is not case sensitive."`
	Milestone string `json:"milestone,omitempty" jsonschema:"Milestone number, * for any milestone, or none for issues without one"`
	State     string `json:"state,omitempty" jsonschema:"Issue state: open, closed or all (default open)"`
	Assignee  string `json:"assignee,omitempty" jsonschema:"A user login, none for unassigned issues, or * for any assignee"`
	Creator   string `json:"creator,omitempty" jsonschema:"The user that created the issue"`
	Mentioned string `json:"mentioned,omitempty" jsonschema:"A user that is mentioned in the issue"`
	Labels    string `json:"labels,omitempty" jsonschema:"Comma separated label names, e.g. bug,ui,@high"`
	IssueType string `json:"issue_type,omitempty" jsonschema:"Issue type name, none for issues without a type, or * for any type"`
	Sort      string `json:"sort,omitempty" jsonschema:"Sort by created, updated or comments (default created)"`
	Direction string `json:"direction,omitempty" jsonschema:"Sort direction: asc or desc (default desc)"`
	Since     string `json:"since,omitempty" jsonschema:"Only issues updated after this ISO 8601 timestamp (YYYY-MM-DDTHH:MM:SSZ)"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"Results per page, max 100 (default 30)"`
	Page      int    `json:"page,omitempty" jsonschema:"Page number of the results (default 1)"`
}

type createIssueFields struct {
	Title     string   `json:"title" jsonschema:"The title of the issue"`
	Body      string   `json:"body,omitempty" jsonschema:"The contents of the issue"`
	Assignee  string   `json:"assignee,omitempty" jsonschema:"Login for the user this issue should be assigned to"`
	Milestone *int     `json:"milestone,omitempty" jsonschema:"The number of the milestone to associate this issue with"`
	Labels    []string `json:"labels,omitempty" jsonschema:"Labels to associate with this issue"`
	Assignees []string `json:"assignees,omitempty" jsonschema:"Logins for users to assign to this issue"`
}

type issuesCreateInput struct {
	Owner string            `json:"owner" jsonschema:"The account owner of the repository"`
	Repo  string            `json:"repo" jsonschema:"The name of the repository without the .git extension"`
	Issue createIssueFields `json:"issue" jsonschema:"The issue to create"`
}

type labelsListInput struct {
	Owner   string `json:"owner" jsonschema:"The account owner of the repository"`
	Repo    string `json:"repo" jsonschema:"The name of the repository without the .git extension"`
	PerPage int    `json:"per_page,omitempty" jsonschema:"Results per page, max 100 (default 30)"`
	Page    int    `json:"page,omitempty" jsonschema:"Page number of the results (default 1)"`
}

func (s *Server) registerIssueTools() error {
	if err := addTool(s, &ToolMetadata{
		Name:        toolIssuesList,
		Description: "List issues in a GitHub repository. Pull requests are returned as issues too and carry a pull_request key. Rate limited; output is sanitized.",
		Category:    CategoryIssues,
		Governed:    true,
		Keywords:    []string{"github", "issues", "list", "search"},
	}, s.handleIssuesList); err != nil {
		return err
	}

	if err := addTool(s, &ToolMetadata{
		Name:        toolIssueCreate,
		Description: "Create an issue in a GitHub repository. Any user with pull access can create an issue; a 410 Gone means issues are disabled. Rate limited; output is sanitized.",
		Category:    CategoryIssues,
		Governed:    true,
		Keywords:    []string{"github", "issues", "create", "open", "new"},
	}, s.handleIssueCreate); err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        toolLabelsList,
		Description: "List all labels defined on a GitHub repository. Rate limited; output is sanitized.",
		Category:    CategoryLabels,
		Governed:    true,
		Keywords:    []string{"github", "labels", "tags"},
	}, s.handleLabelsList)
}

func checkPaging(perPage, page int) error {
	if perPage < 0 || perPage > 100 {
		return invalid("per_page must be between 1 and 100, got %d", perPage)
	}
	if page < 0 {
		return invalid("page must be positive, got %d", page)
	}
	return nil
}

func (in issuesListInput) validate() error {
	if err := sanitize.ValidateRepoRef(in.Owner, in.Repo); err != nil {
		return err
	}
	if err := sanitize.ValidateIssueState(in.State); err != nil {
		return err
	}
	switch in.Sort {
	case "", "created", "updated", "comments":
	default:
		return invalid("sort must be created, updated or comments, got %q", in.Sort)
	}
	switch in.Direction {
	case "", "asc", "desc":
	default:
		return invalid("direction must be asc or desc, got %q", in.Direction)
	}
	if in.Since != "" {
		if _, err := time.Parse(time.RFC3339, in.Since); err != nil {
			return invalid("since must be an ISO 8601 timestamp, got %q", in.Since)
		}
	}
	return checkPaging(in.PerPage, in.Page)
}

func (s *Server) handleIssuesList(ctx context.Context, req *mcp.CallToolRequest, args issuesListInput) (*mcp.CallToolResult, toolOutput, error) {
	if err := args.validate(); err != nil {
		return s.rejected(ctx, toolIssuesList, err)
	}
	return s.governed(ctx, toolIssuesList, func(ctx context.Context) (any, error) {
		return s.gh.ListIssues(ctx, upstream.ListIssuesParams(args))
	})
}

func (s *Server) handleIssueCreate(ctx context.Context, req *mcp.CallToolRequest, args issuesCreateInput) (*mcp.CallToolResult, toolOutput, error) {
	if err := sanitize.ValidateRepoRef(args.Owner, args.Repo); err != nil {
		return s.rejected(ctx, toolIssueCreate, err)
	}
	if args.Issue.Title == "" {
		return s.rejected(ctx, toolIssueCreate, invalid("issue.title is required"))
	}

	params := upstream.CreateIssueParams{
		Owner:     args.Owner,
		Repo:      args.Repo,
		Title:     args.Issue.Title,
		Body:      args.Issue.Body,
		Assignee:  args.Issue.Assignee,
		Milestone: args.Issue.Milestone,
		Labels:    args.Issue.Labels,
		Assignees: args.Issue.Assignees,
	}
	return s.governed(ctx, toolIssueCreate, func(ctx context.Context) (any, error) {
		return s.gh.CreateIssue(ctx, params)
	})
}

func (s *Server) handleLabelsList(ctx context.Context, req *mcp.CallToolRequest, args labelsListInput) (*mcp.CallToolResult, toolOutput, error) {
	if err := sanitize.ValidateRepoRef(args.Owner, args.Repo); err != nil {
		return s.rejected(ctx, toolLabelsList, err)
	}
	if err := checkPaging(args.PerPage, args.Page); err != nil {
		return s.rejected(ctx, toolLabelsList, err)
	}
	return s.governed(ctx, toolLabelsList, func(ctx context.Context) (any, error) {
		return s.gh.ListLabels(ctx, upstream.ListLabelsParams(args))
	})
}
