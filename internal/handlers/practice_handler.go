package handlers

import (
	"context"
	"net/http"

	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/service"
	"typingclash/internal/session"
)

// PracticeHandler exposes the daily typing session
type PracticeHandler struct {
	practiceService *service.PracticeService
	log             *logger.Logger
}

// NewPracticeHandler creates a new practice handler
func NewPracticeHandler(practiceService *service.PracticeService, log *logger.Logger) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService, log: log}
}

type snapshotFunc func(ctx context.Context, user *models.User) (session.Snapshot, error)

// snapshotAction adapts a session operation that answers with a snapshot
func (h *PracticeHandler) snapshotAction(name string, fn snapshotFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		snap, err := fn(r.Context(), user)
		if err != nil {
			respondWithServiceError(w, h.log, "practice "+name+" failed", err)
			return
		}
		respondWithJSON(w, http.StatusOK, snap)
	}
}

func (h *PracticeHandler) Init() http.HandlerFunc {
	return h.snapshotAction("init", h.practiceService.Init)
}

func (h *PracticeHandler) Snapshot() http.HandlerFunc {
	return h.snapshotAction("snapshot", h.practiceService.Snapshot)
}

func (h *PracticeHandler) Start() http.HandlerFunc {
	return h.snapshotAction("start", h.practiceService.Start)
}

func (h *PracticeHandler) Pause() http.HandlerFunc {
	return h.snapshotAction("pause", h.practiceService.Pause)
}

func (h *PracticeHandler) Resume() http.HandlerFunc {
	return h.snapshotAction("resume", h.practiceService.Resume)
}

func (h *PracticeHandler) Restart() http.HandlerFunc {
	return h.snapshotAction("restart", h.practiceService.Restart)
}

func (h *PracticeHandler) Reset() http.HandlerFunc {
	return h.snapshotAction("reset", h.practiceService.Reset)
}

func (h *PracticeHandler) DismissRest() http.HandlerFunc {
	return h.snapshotAction("dismiss rest", h.practiceService.DismissRest)
}

type inputRequest struct {
	Key string `json:"key"`
}

// Input feeds a keystroke to the daily drill, or to re-practice when
// practice is set.
func (h *PracticeHandler) Input(practice bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		var req inputRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
			return
		}
		res, err := h.practiceService.Input(r.Context(), user, req.Key, practice)
		if err != nil {
			respondWithServiceError(w, h.log, "practice input failed", err)
			return
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}

// Complete finishes today's practice and awards the daily points
func (h *PracticeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	res, err := h.practiceService.Complete(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.log, "practice completion failed", err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// Progress returns the caller's practice summary
func (h *PracticeHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	view, err := h.practiceService.Progress(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// Achievements lists the catalog with the caller's unlocks
func (h *PracticeHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	views, err := h.practiceService.Achievements(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load achievements", err)
		return
	}
	respondWithJSON(w, http.StatusOK, views)
}
