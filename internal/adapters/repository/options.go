// Package repository implements the ranking.Store port over an HTTP
// command endpoint, a Redis server, and an in-process treap.
package repository

import (
	"net/http"
	"time"

	"github.com/okian/topboard/pkg/logger"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// RESTOption applies a configuration option to the RESTStore.
type RESTOption func(*RESTStore)

// WithHTTPClient replaces the HTTP client, e.g. for tests.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *RESTStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRESTLogger sets the logger used for protocol diagnostics.
func WithRESTLogger(l logger.Logger) RESTOption {
	return func(s *RESTStore) {
		if l != nil {
			s.logger = l
		}
	}
}
