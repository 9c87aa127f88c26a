package handlers

import (
	"net/http"

	"typingclash/internal/logger"
	"typingclash/internal/service"
)

// SyncHandler reconciles live state with the store and imports data kept
// by the old browser-only client.
type SyncHandler struct {
	syncService   *service.SyncService
	legacyService *service.LegacyImportService
	log           *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *service.SyncService, legacyService *service.LegacyImportService, log *logger.Logger) *SyncHandler {
	return &SyncHandler{syncService: syncService, legacyService: legacyService, log: log}
}

// Sync pushes the caller's progress and replays queued writes. A report
// with errors is still a 200; the client reads Success.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondWithJSON(w, http.StatusOK, h.syncService.Sync(r.Context(), user))
}

// LegacyStatus reports whether the caller already imported legacy data
func (h *SyncHandler) LegacyStatus(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	imported, err := h.legacyService.AlreadyImported(user.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to check legacy import", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"imported": imported})
}

// ImportLegacy validates and migrates a legacy progress blob
func (h *SyncHandler) ImportLegacy(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var data service.LegacyData
	if err := decodeJSON(w, r, &data); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	res, err := h.legacyService.Import(user, &data)
	if err != nil {
		respondWithServiceError(w, h.log, "legacy import failed", err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}
