package api

import (
	"net/http"
)

// StatsProvider reports service statistics for /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service stats plus the live stream's subscriber count.
type StatsHandler struct {
	provider StatsProvider
	hub      *Hub
}

// NewStatsHandler creates a stats handler. Either argument may be nil.
func NewStatsHandler(provider StatsProvider, hub *Hub) *StatsHandler {
	return &StatsHandler{provider: provider, hub: hub}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]interface{}{}
	if h.provider != nil {
		for k, v := range h.provider.GetStats() {
			out[k] = v
		}
	}
	if h.hub != nil {
		out["streamSubscribers"] = h.hub.Subscribers()
	}
	writeJSON(w, http.StatusOK, out)
}
