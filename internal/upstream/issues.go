package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/go-querystring/query"
)

// ListIssuesParams are the filters for listing repository issues.
type ListIssuesParams struct {
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	Milestone string `json:"milestone,omitempty"`
	State     string `json:"state,omitempty"`
	Assignee  string `json:"assignee,omitempty"`
	Creator   string `json:"creator,omitempty"`
	Mentioned string `json:"mentioned,omitempty"`
	// Labels is a comma separated list of label names.
	Labels    string `json:"labels,omitempty"`
	// IssueType filters by issue type name, "none" or "*".
	IssueType string `json:"issue_type,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
	// Since is an ISO 8601 timestamp.
	Since     string `json:"since,omitempty"`
	PerPage   int    `json:"per_page,omitempty"`
	Page      int    `json:"page,omitempty"`
}

// CreateIssueParams describe a new issue.
type CreateIssueParams struct {
	Owner     string   `json:"owner"`
	Repo      string   `json:"repo"`
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Assignee  string   `json:"assignee,omitempty"`
	Milestone *int     `json:"milestone,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// ListLabelsParams page through a repository's labels.
type ListLabelsParams struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	PerPage int    `json:"per_page,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// issueListQuery adds the type filter, which go-github's options lack.
type issueListQuery struct {
	github.IssueListByRepoOptions
	Type string `url:"type,omitempty"`
}

const maxPerPage = 100

func listOptions(perPage, page int) github.ListOptions {
	if perPage <= 0 {
		perPage = 30
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return github.ListOptions{PerPage: perPage, Page: page}
}

func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ListIssues lists issues in a repository.
func (c *Client) ListIssues(ctx context.Context, p ListIssuesParams) ([]*github.Issue, error) {
	opts := github.IssueListByRepoOptions{
		Milestone:   p.Milestone,
		State:       p.State,
		Assignee:    p.Assignee,
		Creator:     p.Creator,
		Mentioned:   p.Mentioned,
		Labels:      splitLabels(p.Labels),
		Sort:        p.Sort,
		Direction:   p.Direction,
		ListOptions: listOptions(p.PerPage, p.Page),
	}
	if p.Since != "" {
		since, err := time.Parse(time.RFC3339, p.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid since %q: %w", p.Since, err)
		}
		opts.Since = since
	}

	values, err := query.Values(issueListQuery{IssueListByRepoOptions: opts, Type: p.IssueType})
	if err != nil {
		return nil, fmt.Errorf("encoding issue filters: %w", err)
	}
	u := fmt.Sprintf("repos/%v/%v/issues", p.Owner, p.Repo)
	if enc := values.Encode(); enc != "" {
		u += "?" + enc
	}

	var issues []*github.Issue
	err = c.withRetry(ctx, "issues.list_for_repo", func() (*github.Response, error) {
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		issues = nil
		return c.gh.Do(ctx, req, &issues)
	})
	if err != nil {
		return nil, fmt.Errorf("listing issues for %s/%s: %w", p.Owner, p.Repo, err)
	}
	return issues, nil
}

// CreateIssue opens a new issue. It is not retried.
func (c *Client) CreateIssue(ctx context.Context, p CreateIssueParams) (*github.Issue, error) {
	req := &github.IssueRequest{Title: github.String(p.Title)}
	if p.Body != "" {
		req.Body = github.String(p.Body)
	}
	if p.Assignee != "" {
		req.Assignee = github.String(p.Assignee)
	}
	if p.Milestone != nil {
		req.Milestone = github.Int(*p.Milestone)
	}
	if len(p.Labels) > 0 {
		labels := append([]string(nil), p.Labels...)
		req.Labels = &labels
	}
	if len(p.Assignees) > 0 {
		assignees := append([]string(nil), p.Assignees...)
		req.Assignees = &assignees
	}

	issue, _, err := c.gh.Issues.Create(ctx, p.Owner, p.Repo, req)
	if err != nil {
		return nil, fmt.Errorf("creating issue in %s/%s: %w", p.Owner, p.Repo, err)
	}
	return issue, nil
}

// ListLabels lists labels defined on a repository.
func (c *Client) ListLabels(ctx context.Context, p ListLabelsParams) ([]*github.Label, error) {
	opts := listOptions(p.PerPage, p.Page)

	var labels []*github.Label
	err := c.withRetry(ctx, "issues.list_labels_for_repo", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		labels, resp, err = c.gh.Issues.ListLabels(ctx, p.Owner, p.Repo, &opts)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing labels for %s/%s: %w", p.Owner, p.Repo, err)
	}
	return labels, nil
}
