package api

import (
	"time"

	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins sets the allowed browser origins. "*" allows any.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithPublicURL sets the address encoded into the share QR code.
func WithPublicURL(u string) Option {
	return func(s *Server) {
		if u != "" {
			s.publicURL = u
		}
	}
}

// WithRequestTimeout bounds handler time.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithHub attaches the live leaderboard hub.
func WithHub(h *Hub) Option {
	return func(s *Server) {
		if h != nil {
			s.hub = h
		}
	}
}

// WithCompanies sets the dataset served by /api/companies.
func WithCompanies(c []dataset.Company) Option {
	return func(s *Server) {
		s.companies = c
	}
}
