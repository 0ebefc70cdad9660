// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	service "github.com/okian/guessconv/internal/app"
	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/types"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/rs/cors"
)

const defaultRequestTimeout = 10 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
	Submit(ctx context.Context, sub model.Submission) (service.SubmitResult, error)
	Rank(ctx context.Context, username string) (int, model.LeaderboardEntry, error)
	Reset(ctx context.Context, token string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	companiesHandler   *CompaniesHandler
	shareHandler       *ShareHandler

	hub            *Hub
	companies      []dataset.Company
	origins        []string
	publicURL      string
	requestTimeout time.Duration
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		origins:        []string{"*"},
		publicURL:      "http://localhost:9080",
		requestTimeout: defaultRequestTimeout,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider, s.hub)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.logger)
	s.rankHandler = NewRankHandler(deps)
	s.companiesHandler = NewCompaniesHandler(s.companies)
	s.shareHandler = NewShareHandler(s.publicURL)
	return s
}

// Router builds a chi router with the standard middleware stack. Callers
// register further routes on it.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Request-Id"},
	}).Handler)
	return r
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	// The stream is long lived and must not sit behind the handler timeout.
	if s.hub != nil {
		r.Get("/api/leaderboard/stream", s.hub.HandleStream)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.requestTimeout))
		r.Get("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Post("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandlePostLeaderboard, "leaderboard"))
		r.Delete("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleResetLeaderboard, "leaderboard_reset"))
		r.Get("/api/leaderboard/{username}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
		r.Get("/api/companies", MetricsMiddleware(s.companiesHandler.HandleGetCompanies, "companies"))
		r.Get("/api/share.png", MetricsMiddleware(s.shareHandler.HandleShare, "share"))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
