// Package api wires the query service's HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jdonosob/gaming-stream-project/internal/adapter/api/handler"
	"github.com/jdonosob/gaming-stream-project/internal/adapter/api/middleware"
	"github.com/jdonosob/gaming-stream-project/internal/usecase"
)

// NewRouter creates the query service router. All endpoints are
// read-only views over the aggregate state the engine maintains.
func NewRouter(logger *slog.Logger, query *usecase.QueryUseCase, sse *handler.SSEBroker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	queryHandler := handler.NewQueryHandler(query, logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", queryHandler.Leaderboard)
		r.Get("/achievements", queryHandler.Achievements)
		r.Get("/player/{playerID}", queryHandler.Player)
		r.Method(http.MethodGet, "/stream", sse)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
