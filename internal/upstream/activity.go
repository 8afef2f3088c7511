package upstream

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
)

// ListStarredParams page through the authenticated user's starred
// repositories.
type ListStarredParams struct {
	// Sort is created (when starred) or updated (last push).
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
	PerPage   int    `json:"per_page,omitempty"`
	Page      int    `json:"page,omitempty"`
}

// ListStarred lists repositories starred by the authenticated user.
func (c *Client) ListStarred(ctx context.Context, p ListStarredParams) ([]*github.StarredRepository, error) {
	opts := &github.ActivityListStarredOptions{
		Sort:        p.Sort,
		Direction:   p.Direction,
		ListOptions: listOptions(p.PerPage, p.Page),
	}

	var starred []*github.StarredRepository
	err := c.withRetry(ctx, "activity.list_starred", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		starred, resp, err = c.gh.Activity.ListStarred(ctx, "", opts)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing starred repositories: %w", err)
	}
	return starred, nil
}
