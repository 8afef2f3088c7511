package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/toolgate/internal/config"
	"github.com/fyrsmithlabs/toolgate/internal/governance"
	httpserver "github.com/fyrsmithlabs/toolgate/internal/http"
	"github.com/fyrsmithlabs/toolgate/internal/logging"
	"github.com/fyrsmithlabs/toolgate/internal/mcp"
	"github.com/fyrsmithlabs/toolgate/internal/telemetry"
	"github.com/fyrsmithlabs/toolgate/internal/upstream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	configPath string
	http       bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the MCP server on stdin/stdout. Logs go to stderr.

The config file is watched and governance policies are reloaded when it
changes. With --http the admin API (health, sanitize, rate-limit status and
Prometheus metrics) is served as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/toolgate/config.yaml)")
	cmd.Flags().BoolVar(&opts.http, "http", false, "serve the admin HTTP API")
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := config.NewLoader()
	if err != nil {
		return err
	}
	path := opts.configPath
	if path == "" {
		path = loader.DefaultPath
	}
	cfg, err := loader.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.http {
		cfg.HTTP.Enabled = true
	}

	telCfg := telemetry.NewDefaultConfig()
	if err := cfg.Section("telemetry", telCfg); err != nil {
		return fmt.Errorf("telemetry config: %w", err)
	}
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if err := cfg.Section("logging", logCfg); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zl := logger.Underlying()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telCfg.Shutdown.Timeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			zl.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	gov, err := governance.NewFromConfig(cfg.Governance,
		governance.WithLogger(logger.Named("governance")),
		governance.WithTracer(tel.Tracer("github.com/fyrsmithlabs/toolgate/internal/governance")),
	)
	if err != nil {
		return err
	}

	gh, err := upstream.New(cfg.GitHub, upstream.WithLogger(zl.Named("github")))
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    cfg.Server.Name,
		Version: serverVersion(cfg.Server.Version),
		Logger:  zl.Named("mcp"),
	}, gov, gh)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	// The session ends when the client closes stdin; take everything else
	// down with it.
	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})

	watcher, err := config.NewWatcher(loader, path, func(c *config.Config) {
		if err := gov.ApplyConfig(c); err != nil {
			zl.Warn("governance reload rejected", zap.Error(err))
		}
	}, zl.Named("config"))
	if err != nil {
		zl.Warn("config reload disabled", zap.String("path", path), zap.Error(err))
	} else {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if cfg.HTTP.Enabled {
		admin, err := httpserver.NewServer(gov, zl.Named("http"), &httpserver.Config{
			Host: cfg.HTTP.Host,
			Port: cfg.HTTP.Port,
		})
		if err != nil {
			return err
		}
		g.Go(admin.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	zl.Info("toolgate started",
		zap.String("version", version),
		zap.Bool("http", cfg.HTTP.Enabled),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serverVersion prefers the build version over the configured one.
func serverVersion(configured string) string {
	if version != "dev" {
		return version
	}
	return configured
}
