package sru

import (
	"net/http"

	"github.com/EmpoweredVote/geoharvest/internal/config"
	"github.com/EmpoweredVote/geoharvest/internal/metrics"
	"github.com/EmpoweredVote/geoharvest/internal/retry"
)

// NewClientFromConfig builds the repository client described by cfg.
func NewClientFromConfig(cfg *config.Config, m *metrics.Metrics) *Client {
	return NewClient(cfg.API.Endpoint,
		WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		WithRateLimit(cfg.API.RateLimit),
		WithPagePolicy(retry.Policy{Attempts: cfg.API.PageAttempts, Backoff: retry.DefaultBackoff}),
		WithMetrics(m),
	)
}
