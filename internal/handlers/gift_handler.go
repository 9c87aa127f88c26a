package handlers

import (
	"net/http"

	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/service"
)

// GiftHandler handles rewards parents offer and students redeem
type GiftHandler struct {
	giftService *service.GiftService
	log         *logger.Logger
}

// NewGiftHandler creates a new gift handler
func NewGiftHandler(giftService *service.GiftService, log *logger.Logger) *GiftHandler {
	return &GiftHandler{giftService: giftService, log: log}
}

// Create adds a gift for the student in the path
func (h *GiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var in service.GiftInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	g, err := h.giftService.Create(parent, studentID, in)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to create gift", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newGiftView(g))
}

// ForStudent lists gifts a parent offers one student
func (h *GiftHandler) ForStudent(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	gifts, err := h.giftService.ByParent(parent, studentID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list gifts", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGiftViews(gifts))
}

// List returns the caller's gifts: those created by a parent, or those
// offered to a student, optionally filtered by ?status=.
func (h *GiftHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var (
		gifts []models.Gift
		err   error
	)
	if user.IsParent() {
		gifts, err = h.giftService.ByParent(user, 0)
	} else {
		status := models.GiftStatus(r.URL.Query().Get("status"))
		switch status {
		case "", models.GiftActive, models.GiftRedeemed, models.GiftClaimed:
		default:
			respondWithError(w, h.log, http.StatusBadRequest, "Invalid gift status", "", nil)
			return
		}
		gifts, err = h.giftService.ForStudent(user, status)
	}
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list gifts", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGiftViews(gifts))
}

func (h *GiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	giftID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var in service.GiftInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	g, err := h.giftService.Update(parent, giftID, in)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to update gift", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGiftView(g))
}

func (h *GiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	giftID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	if err := h.giftService.Delete(parent, giftID); err != nil {
		respondWithServiceError(w, h.log, "failed to delete gift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redeem spends the student's points. An Idempotency-Key header makes
// retries safe.
func (h *GiftHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	student := GetUserFromContext(r.Context())
	giftID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	g, err := h.giftService.Redeem(r.Context(), student, giftID, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		respondWithServiceError(w, h.log, "failed to redeem gift", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGiftView(g))
}

// Claim marks a redeemed gift as handed over
func (h *GiftHandler) Claim(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	giftID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	if err := h.giftService.Claim(user, giftID); err != nil {
		respondWithServiceError(w, h.log, "failed to claim gift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
