package handlers

import (
	"net/http"
	"strconv"

	"typingclash/internal/logger"
	"typingclash/internal/service"
)

const (
	defaultHistoryLimit     = 50
	maxHistoryLimit         = 500
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// PointsHandler serves balances, the ledger and the weekly leaderboard
type PointsHandler struct {
	pointsService      *service.PointsService
	leaderboardService *service.LeaderboardService
	log                *logger.Logger
}

// NewPointsHandler creates a new points handler
func NewPointsHandler(pointsService *service.PointsService, leaderboardService *service.LeaderboardService, log *logger.Logger) *PointsHandler {
	return &PointsHandler{pointsService: pointsService, leaderboardService: leaderboardService, log: log}
}

// queryLimit reads ?limit=, clamped to [1, max]
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	balance, err := h.pointsService.Balance(user.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load balance", err)
		return
	}
	respondWithJSON(w, http.StatusOK, balance)
}

// History lists the caller's ledger, newest first
func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	entries, err := h.pointsService.History(user.ID, queryLimit(r, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load points history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newPointsEntryViews(entries))
}

// Leaderboard ranks this week's earners
func (h *PointsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.Weekly(r.Context(), queryLimit(r, defaultLeaderboardLimit, maxLeaderboardLimit))
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load leaderboard", err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
