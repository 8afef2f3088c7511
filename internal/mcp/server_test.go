package mcp

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/governance"
	"github.com/fyrsmithlabs/toolgate/internal/ratelimit"
	"github.com/fyrsmithlabs/toolgate/internal/telemetry"
	"github.com/fyrsmithlabs/toolgate/internal/upstream"
	"github.com/google/go-github/v57/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGitHub records calls and returns canned responses.
type fakeGitHub struct {
	mu      sync.Mutex
	calls   []string
	issues  []*github.Issue
	created *github.Issue
	labels  []*github.Label
	err     error

	branches   []*github.Branch
	protection *github.Protection
	starred    []*github.StarredRepository

	lastList       upstream.ListIssuesParams
	lastCreate     upstream.CreateIssueParams
	lastBranches   upstream.ListBranchesParams
	lastProtection upstream.BranchProtectionParams
	lastStarred    upstream.ListStarredParams
}

func (f *fakeGitHub) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeGitHub) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGitHub) ListIssues(ctx context.Context, p upstream.ListIssuesParams) ([]*github.Issue, error) {
	f.record("list")
	f.lastList = p
	return f.issues, f.err
}

func (f *fakeGitHub) CreateIssue(ctx context.Context, p upstream.CreateIssueParams) (*github.Issue, error) {
	f.record("create")
	f.lastCreate = p
	return f.created, f.err
}

func (f *fakeGitHub) ListLabels(ctx context.Context, p upstream.ListLabelsParams) ([]*github.Label, error) {
	f.record("labels")
	return f.labels, f.err
}

func (f *fakeGitHub) ListBranches(ctx context.Context, p upstream.ListBranchesParams) ([]*github.Branch, error) {
	f.record("branches")
	f.lastBranches = p
	return f.branches, f.err
}

func (f *fakeGitHub) GetBranchProtection(ctx context.Context, p upstream.BranchProtectionParams) (*github.Protection, error) {
	f.record("protection")
	f.lastProtection = p
	return f.protection, f.err
}

func (f *fakeGitHub) ListStarred(ctx context.Context, p upstream.ListStarredParams) ([]*github.StarredRepository, error) {
	f.record("starred")
	f.lastStarred = p
	return f.starred, f.err
}

type testServer struct {
	*Server
	fake  *fakeGitHub
	tel   *telemetry.TestTelemetry
	slept []time.Duration
}

func newTestServer(t *testing.T, policy ratelimit.Policy) *testServer {
	t.Helper()
	ts := &testServer{fake: &fakeGitHub{}, tel: telemetry.NewTestTelemetry()}

	gov, err := governance.New(
		governance.WithPolicies(policy, nil),
		governance.WithSleeper(func(ctx context.Context, d time.Duration) error {
			ts.slept = append(ts.slept, d)
			return nil
		}),
	)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Metrics = NewMetrics(ts.tel.Meter(instrumentationName), zap.NewNop())
	srv, err := NewServer(cfg, gov, ts.fake)
	require.NoError(t, err)
	ts.Server = srv
	return ts
}

// ghError builds a complete go-github error response for status code.
func ghError(code int, message string) *github.ErrorResponse {
	u, _ := url.Parse("https://api.github.com/repos/o/r/labels")
	return &github.ErrorResponse{
		Response: &http.Response{StatusCode: code, Request: &http.Request{Method: http.MethodGet, URL: u}},
		Message:  message,
	}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content block is %T", res.Content[0])
	return tc.Text
}

func TestNewServer_Validation(t *testing.T) {
	gov, err := governance.New()
	require.NoError(t, err)

	_, err = NewServer(nil, nil, &fakeGitHub{})
	assert.Error(t, err)
	_, err = NewServer(nil, gov, nil)
	assert.Error(t, err)

	srv, err := NewServer(nil, gov, &fakeGitHub{})
	require.NoError(t, err)
	assert.Equal(t, 9, srv.Registry().Count())
	assert.Equal(t, []string{
		toolStarredList, toolIssueCreate, toolIssuesList, toolLabelsList,
		toolBranchProtected, toolBranchesList,
	}, srv.Registry().ListGoverned())
}

func TestServer_EndToEnd(t *testing.T) {
	ts := newTestServer(t, ratelimit.DefaultPolicy())
	ts.fake.labels = []*github.Label{{Name: github.String("bug"), Description: github.String("api_key=abc123")}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := ts.Connect(ctx, serverT)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		toolIssuesList, toolIssueCreate, toolLabelsList,
		toolBranchesList, toolBranchProtected, toolStarredList,
		"governance_status", "tool_search", "tool_list",
	}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolLabelsList,
		Arguments: map[string]any{"owner": "octocat", "repo": "hello-world"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "api_key: ****")
	assert.NotContains(t, textOf(t, res), "abc123")

	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	labels, ok := structured["result"].([]any)
	require.True(t, ok)
	require.Len(t, labels, 1)
	assert.Equal(t, "bug", labels[0].(map[string]any)["name"])
}
