package upstream

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
)

// ListBranchesParams page through a repository's branches.
type ListBranchesParams struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	// Protected limits the listing to protected (true) or unprotected
	// (false) branches. Nil lists both.
	Protected *bool `json:"protected,omitempty"`
	PerPage   int   `json:"per_page,omitempty"`
	Page      int   `json:"page,omitempty"`
}

// BranchProtectionParams name a single branch.
type BranchProtectionParams struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// ListBranches lists branches in a repository.
func (c *Client) ListBranches(ctx context.Context, p ListBranchesParams) ([]*github.Branch, error) {
	opts := &github.BranchListOptions{
		Protected:   p.Protected,
		ListOptions: listOptions(p.PerPage, p.Page),
	}

	var branches []*github.Branch
	err := c.withRetry(ctx, "repos.list_branches", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		branches, resp, err = c.gh.Repositories.ListBranches(ctx, p.Owner, p.Repo, opts)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing branches for %s/%s: %w", p.Owner, p.Repo, err)
	}
	return branches, nil
}

// GetBranchProtection returns the protection rules of a branch. An
// unprotected branch yields github.ErrBranchNotProtected.
func (c *Client) GetBranchProtection(ctx context.Context, p BranchProtectionParams) (*github.Protection, error) {
	var protection *github.Protection
	err := c.withRetry(ctx, "repos.get_branch_protection", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		protection, resp, err = c.gh.Repositories.GetBranchProtection(ctx, p.Owner, p.Repo, p.Branch)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting protection for %s/%s@%s: %w", p.Owner, p.Repo, p.Branch, err)
	}
	return protection, nil
}
