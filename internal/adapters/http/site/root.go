// Package site serves the embedded landing page.
package site

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Error constants
var (
	ErrNilRouter = errors.New("site: nil router")
)

// Register attaches the landing page and its assets to r.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic(ErrNilRouter)
	}
	files := http.FileServer(Assets())
	r.Get("/", files.ServeHTTP)
	r.Get("/static/*", http.StripPrefix("/static", files).ServeHTTP)
}
