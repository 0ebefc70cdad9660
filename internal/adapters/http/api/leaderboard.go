// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/guessconv/internal/app"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/types"
	"github.com/okian/guessconv/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Messages returned in the error field of leaderboard responses.
const (
	msgNotConfigured   = types.MsgNotConfigured
	msgInvalidBody     = types.MsgInvalidBody
	msgInvalidNumbers  = types.MsgInvalidNumbers
	msgFetchFailed     = types.MsgFetchFailed
	msgLookupFailed    = types.MsgLookupFailed
	msgUpdateFailed    = types.MsgUpdateFailed
	msgRefreshFailed   = types.MsgRefreshFailed
	msgOperationFailed = types.MsgOperationFailed
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
	Submit(ctx context.Context, sub model.Submission) (service.SubmitResult, error)
	Reset(ctx context.Context, token string) error
}

// LeaderboardHandler handles /api/leaderboard. Read and write failures are
// reported with status 200 and an error field next to an empty leaderboard,
// which is what browser clients expect.
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, l logger.Logger) *LeaderboardHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &LeaderboardHandler{deps: deps, logger: l.Named("leaderboard")}
}

// HandleGetLeaderboard handles GET /api/leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	entries, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		msg := msgFetchFailed + err.Error()
		if errors.Is(err, service.ErrNotConfigured) {
			msg = msgNotConfigured
		}
		h.logger.Error(r.Context(), "leaderboard read failed", logger.Error(Wrap(op, err)))
		writeBoardError(w, msg)
		return
	}
	writeJSON(w, http.StatusOK, types.LeaderboardResponse{Leaderboard: types.FromModels(entries)})
}

// HandlePostLeaderboard handles POST /api/leaderboard.
func (h *LeaderboardHandler) HandlePostLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_leaderboard"
	var req types.SubmissionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.Debug(r.Context(), "bad submission body", logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeBoardError(w, msgInvalidBody)
		return
	}
	sub := req.ToModel()
	if sub.IdempotencyKey == "" {
		sub.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	res, err := h.deps.Submit(r.Context(), sub)
	if err != nil {
		msg := submitErrorMessage(err)
		h.logger.Error(r.Context(), "submission failed",
			logger.String("username", sub.Username), logger.Error(Wrap(op, err)))
		writeBoardError(w, msg)
		return
	}
	writeJSON(w, http.StatusOK, types.LeaderboardResponse{Leaderboard: types.FromModels(res.Leaderboard)})
}

// HandleResetLeaderboard handles DELETE /api/leaderboard with a bearer admin token.
func (h *LeaderboardHandler) HandleResetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_leaderboard"
	// a missing token still goes through Reset so a disabled admin reads as 404
	err := h.deps.Reset(r.Context(), bearerToken(r))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrAdminDisabled):
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, service.ErrUnauthorized):
		h.logger.Warn(r.Context(), "rejected leaderboard reset", logger.Error(WrapKind(op, ErrUnauthorized, err)))
		writeError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
	default:
		h.logger.Error(r.Context(), "leaderboard reset failed", logger.Error(WrapKind(op, ErrInternal, err)))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func submitErrorMessage(err error) string {
	var se *service.SubmitError
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		return msgNotConfigured
	case errors.Is(err, service.ErrUsernameRequired):
		return service.ErrUsernameRequired.Error()
	case errors.Is(err, model.ErrInvalidSubmission):
		return msgInvalidNumbers
	case errors.As(err, &se):
		switch se.Stage {
		case service.StageLookup:
			return msgLookupFailed + se.Err.Error()
		case service.StageWrite:
			return msgUpdateFailed + se.Err.Error()
		case service.StageRefresh:
			return msgRefreshFailed + se.Err.Error()
		}
	}
	return msgOperationFailed
}

func writeBoardError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, types.LeaderboardResponse{Error: msg, Leaderboard: []types.LeaderboardEntry{}})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
