package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/toolgate/internal/governance"
	"github.com/fyrsmithlabs/toolgate/internal/upstream"
	"github.com/google/go-github/v57/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// GitHubAPI is the upstream surface the governed tools call.
type GitHubAPI interface {
	ListIssues(ctx context.Context, p upstream.ListIssuesParams) ([]*github.Issue, error)
	CreateIssue(ctx context.Context, p upstream.CreateIssueParams) (*github.Issue, error)
	ListLabels(ctx context.Context, p upstream.ListLabelsParams) ([]*github.Label, error)
	ListBranches(ctx context.Context, p upstream.ListBranchesParams) ([]*github.Branch, error)
	GetBranchProtection(ctx context.Context, p upstream.BranchProtectionParams) (*github.Protection, error)
	ListStarred(ctx context.Context, p upstream.ListStarredParams) ([]*github.StarredRepository, error)
}

var _ GitHubAPI = (*upstream.Client)(nil)

// Server is an MCP server exposing governed GitHub tools.
type Server struct {
	mcp      *mcp.Server
	gov      *governance.Governor
	gh       GitHubAPI
	registry *ToolRegistry
	metrics  *Metrics
	logger   *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name reported to clients (default: "toolgate").
	Name    string
	Version string
	Logger  *zap.Logger
	// Metrics defaults to instruments on the global meter provider.
	Metrics *Metrics
}

func DefaultConfig() *Config {
	return &Config{
		Name:    "toolgate",
		Version: "0.1.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a server and registers every tool.
func NewServer(cfg *Config, gov *governance.Governor, gh GitHubAPI) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if gov == nil {
		return nil, errors.New("governor is required")
	}
	if gh == nil {
		return nil, errors.New("github api is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil, cfg.Logger)
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		gov:      gov,
		gh:       gh,
		registry: NewToolRegistry(),
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Registry returns the tool registry.
func (s *Server) Registry() *ToolRegistry {
	return s.registry
}

// Run serves on the stdio transport until ctx ends or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport",
		zap.Strings("governed_tools", s.registry.ListGoverned()))
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves on an arbitrary transport.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	if err := s.mcp.Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect starts a session on t without blocking. Used by in-process
// clients and tests.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
