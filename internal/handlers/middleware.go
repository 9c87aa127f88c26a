package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/security"
	"typingclash/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	log         *logger.Logger
}

// NewMiddleware creates a new middleware instance. limiter may be nil to
// disable rate limiting.
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		log:         log,
	}
}

// RequireAuth accepts a bearer token or a session cookie. Cookie-authenticated
// mutations must also carry a valid CSRF token.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := security.BearerToken(r); ok {
			user, err := m.authService.ValidateToken(token)
			if err != nil {
				respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}
		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			if statusForError(err) == http.StatusInternalServerError {
				respondWithError(w, m.log, http.StatusInternalServerError, ErrInternalServerError, "failed to validate session", err)
				return
			}
			respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}

		if !isSafeMethod(r.Method) && !m.csrf.ValidateToken(cookie.Value, r.Header.Get(security.CSRFHeader)) {
			m.log.Warn("csrf token rejected", "user_id", user.ID, "path", r.URL.Path)
			respondWithJSON(w, http.StatusForbidden, errorResponse{Error: "Invalid CSRF token"})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, SessionContextKey, cookie.Value)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole rejects users without role. It must run inside RequireAuth.
func (m *Middleware) RequireRole(role models.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}
		if user.Role != role {
			respondWithJSON(w, http.StatusForbidden, errorResponse{Error: ErrForbidden})
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	if m.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if ok, wait := m.limiter.Allow(ip); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			m.log.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			respondWithJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests, please try again later"})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs method, path, status and duration of each request
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// sessionFromContext returns the cookie session ID, empty for bearer requests
func sessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}
