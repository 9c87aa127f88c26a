package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"typingclash/internal/logger"
	"typingclash/internal/playtime"
	"typingclash/internal/service"
	"typingclash/internal/validation"
)

// ParentHandler handles parent-student relations and supervision
type ParentHandler struct {
	parentService *service.ParentService
	pointsService *service.PointsService
	log           *logger.Logger
}

// NewParentHandler creates a new parent handler
func NewParentHandler(parentService *service.ParentService, pointsService *service.PointsService, log *logger.Logger) *ParentHandler {
	return &ParentHandler{parentService: parentService, pointsService: pointsService, log: log}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type bindRequest struct {
	InviteCode  string `json:"inviteCode"`
	AccountName string `json:"accountName"`
}

// Bind links a student by invite code or account name
func (h *ParentHandler) Bind(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	var req bindRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.InviteCode))
	name := strings.ToLower(strings.TrimSpace(req.AccountName))

	var err error
	switch {
	case code != "":
		_, err = h.parentService.BindByInviteCode(parent, code)
	case name != "":
		_, err = h.parentService.BindByAccountName(parent, name)
	default:
		err = validation.ValidationError{Field: "inviteCode", Message: "an invite code or account name is required"}
	}
	if err != nil {
		respondWithServiceError(w, h.log, "failed to bind student", err)
		return
	}

	students, err := h.parentService.Students(parent)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list students", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newStudentViews(students))
}

// Unbind removes one of the parent's students
func (h *ParentHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	if err := h.parentService.Unbind(parent, parent.ID, studentID); err != nil {
		respondWithServiceError(w, h.log, "failed to unbind student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LeaveParent lets a student remove their parent
func (h *ParentHandler) LeaveParent(w http.ResponseWriter, r *http.Request) {
	student := GetUserFromContext(r.Context())
	parentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	if err := h.parentService.Unbind(student, parentID, student.ID); err != nil {
		respondWithServiceError(w, h.log, "failed to leave parent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Students lists the parent's students with their progress
func (h *ParentHandler) Students(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	students, err := h.parentService.Students(parent)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list students", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newStudentViews(students))
}

// Parents lists who supervises the calling student
func (h *ParentHandler) Parents(w http.ResponseWriter, r *http.Request) {
	student := GetUserFromContext(r.Context())
	parents, err := h.parentService.Parents(student)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to list parents", err)
		return
	}
	out := make([]publicUserView, 0, len(parents))
	for _, p := range parents {
		out = append(out, publicUserView{ID: p.ID, AccountName: p.AccountName, Nickname: p.Nickname, Avatar: p.Avatar})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *ParentHandler) StudentProgress(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	p, err := h.parentService.StudentProgress(parent, studentID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load student progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newProgressSummaryView(p))
}

func (h *ParentHandler) StudentRecords(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	records, err := h.parentService.StudentRecords(parent, studentID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load student records", err)
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (h *ParentHandler) StudentGames(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	records, err := h.parentService.StudentGames(parent, studentID)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to load student games", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGameRecordViews(records))
}

// UpdateRatio sets how practice time converts to play time
func (h *ParentHandler) UpdateRatio(w http.ResponseWriter, r *http.Request) {
	parent := GetUserFromContext(r.Context())
	studentID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var ratio playtime.Ratio
	if err := decodeJSON(w, r, &ratio); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	rel, err := h.parentService.UpdateRatio(parent, studentID, ratio)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to update ratio", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newRelationView(rel))
}

// AdjustPoints awards or, when deduct is set, removes student points
func (h *ParentHandler) AdjustPoints(deduct bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent := GetUserFromContext(r.Context())
		studentID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidID, "", nil)
			return
		}
		var adj service.PointsAdjustment
		if err := decodeJSON(w, r, &adj); err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
			return
		}
		if adj.Key == "" {
			adj.Key = r.Header.Get(IdempotencyKeyHeader)
		}

		var (
			applied bool
			err     error
		)
		if deduct {
			applied, err = h.pointsService.ParentDeduct(parent, studentID, adj)
		} else {
			applied, err = h.pointsService.ParentAward(parent, studentID, adj)
		}
		if err != nil {
			respondWithServiceError(w, h.log, "failed to adjust points", err)
			return
		}

		balance, err := h.pointsService.Balance(studentID)
		if err != nil {
			respondWithServiceError(w, h.log, "failed to load balance", err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"applied": applied, "balance": balance})
	}
}
