package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/config"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.github.com/"

// ErrInvalidBaseURL is returned when github.base_url cannot be parsed.
var ErrInvalidBaseURL = errors.New("invalid github base url")

// Client calls the GitHub issues API.
type Client struct {
	gh     *github.Client
	retry  RetryConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	retry     *RetryConfig
}

// WithTransport sets the base transport beneath auth and pacing.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRetry overrides the retry schedule. MaxRetries still comes from
// config unless set here.
func WithRetry(rc RetryConfig) Option {
	return func(o *options) { o.retry = &rc }
}

// WithSleep replaces the retry back-off sleep.
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = f }
}

// New builds a client from the github config section. Without a token the
// client is unauthenticated and subject to GitHub's anonymous limits.
func New(cfg config.GitHubConfig, opts ...Option) (*Client, error) {
	o := &options{logger: zap.NewNop(), sleep: sleepContext}
	for _, opt := range opts {
		opt(o)
	}

	rt := newPacedTransport(o.transport, cfg.RequestsPerSecond, cfg.Burst)
	if cfg.Token.IsSet() {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()}),
			Base:   rt,
		}
	} else {
		o.logger.Warn("github token not set, using unauthenticated requests")
	}

	gh := github.NewClient(&http.Client{Transport: rt, Timeout: cfg.Timeout.Duration()})
	if base := cfg.BaseURL; base != "" && base != defaultBaseURL {
		u, err := parseBaseURL(base)
		if err != nil {
			return nil, err
		}
		gh.BaseURL = u
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	if o.retry != nil {
		retry = *o.retry
	}
	retry.ApplyDefaults()

	return &Client{gh: gh, retry: retry, logger: o.logger, sleep: o.sleep}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return u, nil
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.gh.BaseURL.String()
}
