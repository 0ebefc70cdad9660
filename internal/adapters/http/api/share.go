package api

import (
	"net/http"
	"sync"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 320 // mobile-friendly size

// ShareHandler serves a QR code pointing players at the game.
type ShareHandler struct {
	url  string
	once sync.Once
	png  []byte
	err  error
}

// NewShareHandler creates a handler encoding url.
func NewShareHandler(url string) *ShareHandler {
	return &ShareHandler{url: url}
}

// HandleShare handles GET /api/share.png. The image is rendered once.
func (h *ShareHandler) HandleShare(w http.ResponseWriter, _ *http.Request) {
	h.once.Do(func() {
		h.png, h.err = qrcode.Encode(h.url, qrcode.Medium, qrSize)
	})
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(h.png)
}
