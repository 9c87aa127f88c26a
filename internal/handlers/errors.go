package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"typingclash/internal/logger"
	"typingclash/internal/progress"
	"typingclash/internal/security"
	"typingclash/internal/service"
	"typingclash/internal/validation"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Issues []string          `json:"issues,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(logMsg, "status", status, "error", err)
	}
	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError picks the status for err. Client errors echo the
// error text; anything unexpected is logged and hidden.
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, logMsg string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, log, status, ErrInternalServerError, logMsg, err)
		return
	}

	resp := errorResponse{Error: err.Error()}
	var verrs validation.Errors
	var verr validation.ValidationError
	var importErr *service.ImportError
	switch {
	case errors.As(err, &importErr):
		resp.Error = service.ErrInvalidImport.Error()
		resp.Issues = importErr.Issues
	case errors.As(err, &verrs):
		resp.Error = "Validation failed"
		resp.Fields = verrs.Fields()
	case errors.As(err, &verr):
		resp.Fields = map[string]string{verr.Field: verr.Message}
	}
	respondWithJSON(w, status, resp)
}

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		service.ErrInvalidImport, service.ErrInvalidRatio, service.ErrInvalidPoints,
		service.ErrInvalidMembership, progress.ErrInvalidAmount, service.ErrBindSelf,
		service.ErrTargetNotStudent, service.ErrInappropriateName,
	}},
	{http.StatusUnauthorized, []error{
		service.ErrInvalidCredentials, service.ErrSessionNotFound, service.ErrSessionExpired,
		security.ErrInvalidToken,
	}},
	{http.StatusForbidden, []error{
		service.ErrNoAccess, service.ErrNotParent, service.ErrNotStudent,
		service.ErrGiftNotOwned, service.ErrGameLocked, service.ErrSignupClosed,
	}},
	{http.StatusNotFound, []error{
		service.ErrUserNotFound, service.ErrStudentNotFound, service.ErrRelationNotFound,
		service.ErrGiftNotFound, service.ErrGameNotFound,
	}},
	{http.StatusConflict, []error{
		service.ErrAccountNameTaken, service.ErrEmailTaken, service.ErrAlreadyBoundByYou,
		service.ErrAlreadyBoundByOther, service.ErrGiftInactive, service.ErrGiftNotRedeemed,
		service.ErrGameNotAllowed, service.ErrGameNotRunning, service.ErrGameTimeUsedUp,
		service.ErrAlreadyPlaying,
	}},
	{http.StatusUnprocessableEntity, []error{progress.ErrInsufficientPoints}},
}

// statusForError maps service errors to HTTP statuses
func statusForError(err error) int {
	var verrs validation.Errors
	var verr validation.ValidationError
	if errors.As(err, &verrs) || errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	if service.IsSessionError(err) {
		return http.StatusConflict
	}
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
