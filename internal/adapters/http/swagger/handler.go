// Package swagger serves the API documentation.
package swagger

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Error constants.
var (
	ErrNilRouter = errors.New("swagger: nil router")
)

// Register attaches Swagger UI and the OpenAPI spec routes to r.
// Routes:
//
//	GET /openapi.yaml -> embedded OpenAPI spec
//	GET /swagger/*    -> Swagger UI reading /openapi.yaml
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic(ErrNilRouter)
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})

	r.Get("/swagger", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
	))
}
