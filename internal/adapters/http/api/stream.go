package api

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/types"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/okian/guessconv/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

// BoardSource returns the current leaderboard for new subscribers.
type BoardSource interface {
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}

type subscriber struct {
	conn *websocket.Conn
	send chan types.LeaderboardResponse
}

// Hub fans leaderboard updates out to WebSocket subscribers. It implements
// service.Notifier.
type Hub struct {
	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool

	source   BoardSource
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHub creates a hub. origins limits browser origins; "*" or none allows any.
func NewHub(source BoardSource, l logger.Logger, origins ...string) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	h := &Hub{
		clients: make(map[*subscriber]struct{}),
		source:  source,
		logger:  l.Named("stream"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := allowed[u.Scheme+"://"+u.Host]
		return ok
	}
}

// Broadcast queues lb for every subscriber. Subscribers that cannot keep up
// are disconnected.
func (h *Hub) Broadcast(ctx context.Context, lb []model.LeaderboardEntry) {
	msg := types.LeaderboardResponse{Leaderboard: types.FromModels(lb)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn(ctx, "dropping slow subscriber")
			h.removeLocked(c)
		}
	}
	metrics.RecordStreamBroadcast()
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects everyone and refuses new subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// HandleStream handles GET /api/leaderboard/stream.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &subscriber{conn: conn, send: make(chan types.LeaderboardResponse, sendBuffer)}

	if h.source != nil {
		if lb, err := h.source.Leaderboard(r.Context()); err == nil {
			c.send <- types.LeaderboardResponse{Leaderboard: types.FromModels(lb)}
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	metrics.UpdateStreamSubscribers(len(h.clients))
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the peer going away.
func (h *Hub) readPump(c *subscriber) {
	defer h.remove(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *subscriber) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.UpdateStreamSubscribers(len(h.clients))
}
