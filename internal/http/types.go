package http

import "github.com/fyrsmithlabs/toolgate/internal/governance"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SanitizeRequest is the JSON request body for POST /api/v1/sanitize.
type SanitizeRequest struct {
	Content any `json:"content"`
}

// SanitizeResponse is the response body for POST /api/v1/sanitize.
type SanitizeResponse struct {
	Content any `json:"content"`
}

// RateLimitResponse is the response body for GET /api/v1/ratelimit.
type RateLimitResponse struct {
	Status governance.Status `json:"status"`
	Counts WindowCounts      `json:"counts"`
}

// WindowCounts summarizes the reported windows.
type WindowCounts struct {
	Active    int `json:"active"`    // windows with at least one call
	Exhausted int `json:"exhausted"` // windows with no calls remaining
}
