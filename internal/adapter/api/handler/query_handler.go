// Package handler contains the HTTP handlers of the query service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jdonosob/gaming-stream-project/internal/usecase"
)

const (
	defaultTopN      = 10
	maxTopN          = 100
	defaultFeedLimit = 10
	maxFeedLimit     = 100
)

// QueryHandler serves the read-only aggregate state endpoints.
type QueryHandler struct {
	query  *usecase.QueryUseCase
	logger *slog.Logger
}

// NewQueryHandler creates the query endpoints handler.
func NewQueryHandler(query *usecase.QueryUseCase, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{query: query, logger: logger}
}

// Leaderboard handles GET /api/leaderboard?top=N.
func (h *QueryHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	n, ok := boundedQueryInt(r, "top", defaultTopN, maxTopN)
	if !ok {
		writeError(w, http.StatusBadRequest, "top must be an integer between 1 and 100")
		return
	}

	entries, err := h.query.Leaderboard(r.Context(), n)
	if err != nil {
		h.logger.Error("leaderboard read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaders": entries, "count": len(entries)})
}

// Achievements handles GET /api/achievements?limit=N.
func (h *QueryHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	limit, ok := boundedQueryInt(r, "limit", defaultFeedLimit, maxFeedLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
		return
	}

	entries, err := h.query.RecentAchievements(r.Context(), limit)
	if err != nil {
		h.logger.Error("achievements read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read achievements")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Player handles GET /api/player/{playerID}.
func (h *QueryHandler) Player(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "player id is required")
		return
	}

	agg, ok, err := h.query.Player(r.Context(), playerID)
	if err != nil {
		h.logger.Error("player read failed", "player_id", playerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read player stats")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func boundedQueryInt(r *http.Request, param string, def, max int64) (int64, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return def, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
