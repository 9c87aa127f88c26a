package handlers

import (
	"net/http"
	"strings"
	"time"

	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/security"
	"typingclash/internal/service"
)

// CSRFTokens issues the per-session tokens handed to browser clients
type CSRFTokens interface {
	GenerateToken(sessionID string) (string, error)
}

// AuthHandler handles accounts, sessions and the caller's own profile
type AuthHandler struct {
	authService          *service.AuthService
	profileService       *service.ProfileService
	practiceService      *service.PracticeService
	csrf                 CSRFTokens
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
	log                  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, profileService *service.ProfileService, practiceService *service.PracticeService,
	csrf CSRFTokens, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL, appBaseURL string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		profileService:       profileService,
		practiceService:      practiceService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
		log:                  log,
	}
}

type authResponse struct {
	User      userView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CSRFToken string    `json:"csrfToken"`
}

// startSession sets the session cookie and returns a bearer token as well,
// so both browser and API clients can continue.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, user *models.User) {
	token, expires, err := h.authService.IssueToken(user)
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to issue token", err)
		return
	}
	csrfToken, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to generate csrf token", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondWithJSON(w, status, authResponse{
		User:      newUserView(user),
		Token:     token,
		ExpiresAt: expires,
		CSRFToken: csrfToken,
	})
}

// Signup creates an account and logs it in
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	in.AccountName = strings.ToLower(strings.TrimSpace(in.AccountName))

	session, user, err := h.authService.Signup(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to sign up", err)
		return
	}
	h.startSession(w, r, http.StatusCreated, session, user)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login authenticates by account name or email
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	session, user, err := h.authService.Login(req.Login, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to log in", err)
		return
	}
	h.startSession(w, r, http.StatusOK, session, user)
}

// Logout saves live practice state and ends the cookie session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	h.practiceService.Release(r.Context(), user.ID)

	if sessionID := sessionFromContext(r.Context()); sessionID != "" {
		if err := h.authService.Logout(sessionID); err != nil {
			h.log.Warn("failed to delete session", "user_id", user.ID, "error", err)
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// AccountNameAvailable reports whether ?name= is free
func (h *AuthHandler) AccountNameAvailable(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))
	ok, err := h.authService.AccountNameAvailable(name)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to check account name", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"name": name, "available": ok})
}

// SuggestAccountName proposes a free account name
func (h *AuthHandler) SuggestAccountName(w http.ResponseWriter, r *http.Request) {
	name, err := h.authService.SuggestAccountName()
	if err != nil {
		respondWithServiceError(w, h.log, "failed to suggest account name", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"accountName": name})
}

type meResponse struct {
	User      userView `json:"user"`
	CSRFToken string   `json:"csrfToken,omitempty"`
}

// Me returns the caller's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	resp := meResponse{User: newUserView(user)}
	if sessionID := sessionFromContext(r.Context()); sessionID != "" {
		token, err := h.csrf.GenerateToken(sessionID)
		if err != nil {
			respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to generate csrf token", err)
			return
		}
		resp.CSRFToken = token
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// UpdateMe changes nickname, sound or avatar
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	updated, err := h.profileService.Update(user, in)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to update profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, meResponse{User: newUserView(updated)})
}

// SwitchRole moves the caller between parent and student
func (h *AuthHandler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	updated, err := h.profileService.SwitchRole(user, req.Role)
	if err != nil {
		respondWithServiceError(w, h.log, "failed to switch role", err)
		return
	}
	respondWithJSON(w, http.StatusOK, meResponse{User: newUserView(updated)})
}
