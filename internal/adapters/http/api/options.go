package api

import (
	"golang.org/x/time/rate"

	"github.com/okian/topboard/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAdminSecret sets the bearer secret for privileged routes. Without
// one those routes always answer 401.
func WithAdminSecret(secret string) Option {
	return func(s *Server) {
		s.adminSecret = secret
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithSubmitRate limits score submissions per client address. A
// non-positive rate leaves submissions unlimited.
func WithSubmitRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 && burst > 0 {
			s.limiter = NewIPRateLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
