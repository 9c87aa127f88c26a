package handlers

import (
	"errors"
	"net/http"

	"typingclash/internal/logger"
	"typingclash/internal/playtime"
	"typingclash/internal/service"
)

// GameHandler gates the reward games behind practice
type GameHandler struct {
	gameService *service.GameService
	log         *logger.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameService *service.GameService, log *logger.Logger) *GameHandler {
	return &GameHandler{gameService: gameService, log: log}
}

// Status reports the play allowance and whether a game may start
func (h *GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	status, err := h.gameService.Status(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load game status", err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// Types lists the game catalog with availability for the caller
func (h *GameHandler) Types(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	types, err := h.gameService.Types(user)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list game types", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGameTypeViews(types))
}

type startGameResponse struct {
	Error    string            `json:"error,omitempty"`
	Decision playtime.Decision `json:"decision"`
}

// Start begins a game session when the gate allows it. Denials carry the
// gate's decision so the client can explain them.
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req struct {
		GameType string `json:"gameType"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	decision, err := h.gameService.Start(r.Context(), user, req.GameType)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, startGameResponse{Decision: decision})
	case errors.Is(err, service.ErrGameNotAllowed), errors.Is(err, service.ErrGameTimeUsedUp), errors.Is(err, service.ErrAlreadyPlaying):
		respondWithJSON(w, http.StatusConflict, startGameResponse{Error: err.Error(), Decision: decision})
	default:
		respondWithServiceError(w, h.log, "failed to start game", err)
	}
}

// Heartbeat enforces the running game's limits
func (h *GameHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	stopped, err := h.gameService.Heartbeat(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.log, "game heartbeat failed", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

// Stop ends the running game and records the time played
func (h *GameHandler) Stop(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	rec, err := h.gameService.Stop(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to stop game", err)
		return
	}
	respondWithJSON(w, http.StatusOK, gameRecordView{GameType: rec.GameType, Date: rec.Date, TotalTimeMs: rec.TotalTimeMs, Completed: rec.Completed})
}

// Records lists the caller's daily game records
func (h *GameHandler) Records(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	records, err := h.gameService.Records(user.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list game records", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGameRecordViews(records))
}
