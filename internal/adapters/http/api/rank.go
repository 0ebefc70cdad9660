// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/okian/guessconv/internal/adapters/repository"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/types"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, username string) (int, model.LeaderboardEntry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /api/leaderboard/{username} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, ErrBadRequest.Error())
		return
	}
	rank, entry, err := h.deps.Rank(r.Context(), username)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.RankResponse{Rank: rank, Entry: types.FromModel(entry)})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Player not found")
	case errors.Is(err, repository.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, msgNotConfigured)
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
