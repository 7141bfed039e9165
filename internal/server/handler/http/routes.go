package http

import (
	"net/http"

	"github.com/atinyakov/journalon/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler of the reference store.
//
// Routes:
//
//	PUT /store?pk=     → blobHandler.Store (JSON only)
//	GET /healthz       → 200 "ok"
//	GET /{publicKey}   → blobHandler.Fetch
//
// Every request is logged and panics are turned into 500 responses.
func NewRouter(blobHandler *BlobHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.With(chiMiddleware.AllowContentType("application/json")).Put("/store", blobHandler.Store)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/{publicKey}", blobHandler.Fetch)

	return r
}
