package handlers

import (
	"net/http"

	"typingclash/internal/models"
)

// Handlers groups every handler the router mounts
type Handlers struct {
	Auth     *AuthHandler
	Practice *PracticeHandler
	Game     *GameHandler
	Parent   *ParentHandler
	Gift     *GiftHandler
	Points   *PointsHandler
	Sync     *SyncHandler
}

// NewRouter registers the JSON API and the OAuth redirects
func NewRouter(mw *Middleware, h Handlers) http.Handler {
	mux := http.NewServeMux()
	auth := mw.RequireAuth
	parent := func(next http.HandlerFunc) http.HandlerFunc {
		return mw.RequireAuth(mw.RequireRole(models.RoleParent, next))
	}

	// Public routes
	mux.HandleFunc("POST /api/auth/signup", mw.RateLimit(h.Auth.Signup))
	mux.HandleFunc("POST /api/auth/login", mw.RateLimit(h.Auth.Login))
	mux.HandleFunc("GET /api/auth/available", mw.RateLimit(h.Auth.AccountNameAvailable))
	mux.HandleFunc("GET /api/auth/suggest", h.Auth.SuggestAccountName)
	mux.HandleFunc("GET /api/auth/providers", h.Auth.OAuthProviders)
	mux.HandleFunc("GET /auth/{provider}/start", mw.RateLimit(h.Auth.StartOAuth))
	mux.HandleFunc("GET /auth/{provider}/callback", mw.RateLimit(h.Auth.OAuthCallback))
	mux.HandleFunc("GET /api/leaderboard", h.Points.Leaderboard)

	// Account
	mux.HandleFunc("POST /api/auth/logout", auth(h.Auth.Logout))
	mux.HandleFunc("GET /api/me", auth(h.Auth.Me))
	mux.HandleFunc("PATCH /api/me", auth(h.Auth.UpdateMe))
	mux.HandleFunc("PUT /api/me/role", auth(h.Auth.SwitchRole))
	mux.HandleFunc("GET /api/me/parents", auth(h.Parent.Parents))
	mux.HandleFunc("DELETE /api/me/parents/{id}", auth(h.Parent.LeaveParent))

	// Practice
	mux.HandleFunc("GET /api/progress", auth(h.Practice.Progress))
	mux.HandleFunc("GET /api/achievements", auth(h.Practice.Achievements))
	mux.HandleFunc("GET /api/practice", auth(h.Practice.Snapshot()))
	mux.HandleFunc("POST /api/practice/init", auth(h.Practice.Init()))
	mux.HandleFunc("POST /api/practice/start", auth(h.Practice.Start()))
	mux.HandleFunc("POST /api/practice/pause", auth(h.Practice.Pause()))
	mux.HandleFunc("POST /api/practice/resume", auth(h.Practice.Resume()))
	mux.HandleFunc("POST /api/practice/reset", auth(h.Practice.Reset()))
	mux.HandleFunc("POST /api/practice/restart", auth(h.Practice.Restart()))
	mux.HandleFunc("POST /api/practice/rest/dismiss", auth(h.Practice.DismissRest()))
	mux.HandleFunc("POST /api/practice/input", auth(h.Practice.Input(false)))
	mux.HandleFunc("POST /api/practice/practice-input", auth(h.Practice.Input(true)))
	mux.HandleFunc("POST /api/practice/complete", auth(h.Practice.Complete))

	// Games
	mux.HandleFunc("GET /api/game/status", auth(h.Game.Status))
	mux.HandleFunc("GET /api/game/types", auth(h.Game.Types))
	mux.HandleFunc("GET /api/game/records", auth(h.Game.Records))
	mux.HandleFunc("POST /api/game/start", auth(h.Game.Start))
	mux.HandleFunc("POST /api/game/heartbeat", auth(h.Game.Heartbeat))
	mux.HandleFunc("POST /api/game/stop", auth(h.Game.Stop))

	// Parent supervision
	mux.HandleFunc("GET /api/parent/students", parent(h.Parent.Students))
	mux.HandleFunc("POST /api/parent/students", parent(h.Parent.Bind))
	mux.HandleFunc("DELETE /api/parent/students/{id}", parent(h.Parent.Unbind))
	mux.HandleFunc("GET /api/parent/students/{id}/progress", parent(h.Parent.StudentProgress))
	mux.HandleFunc("GET /api/parent/students/{id}/records", parent(h.Parent.StudentRecords))
	mux.HandleFunc("GET /api/parent/students/{id}/games", parent(h.Parent.StudentGames))
	mux.HandleFunc("PUT /api/parent/students/{id}/ratio", parent(h.Parent.UpdateRatio))
	mux.HandleFunc("POST /api/parent/students/{id}/points/award", parent(h.Parent.AdjustPoints(false)))
	mux.HandleFunc("POST /api/parent/students/{id}/points/deduct", parent(h.Parent.AdjustPoints(true)))
	mux.HandleFunc("GET /api/parent/students/{id}/gifts", parent(h.Gift.ForStudent))
	mux.HandleFunc("POST /api/parent/students/{id}/gifts", parent(h.Gift.Create))

	// Gifts and points
	mux.HandleFunc("GET /api/gifts", auth(h.Gift.List))
	mux.HandleFunc("PUT /api/gifts/{id}", parent(h.Gift.Update))
	mux.HandleFunc("DELETE /api/gifts/{id}", parent(h.Gift.Delete))
	mux.HandleFunc("POST /api/gifts/{id}/redeem", auth(h.Gift.Redeem))
	mux.HandleFunc("POST /api/gifts/{id}/claim", auth(h.Gift.Claim))
	mux.HandleFunc("GET /api/points", auth(h.Points.Balance))
	mux.HandleFunc("GET /api/points/history", auth(h.Points.History))

	// Sync and import
	mux.HandleFunc("POST /api/sync/flush", auth(h.Sync.Sync))
	mux.HandleFunc("GET /api/import/legacy", auth(h.Sync.LegacyStatus))
	mux.HandleFunc("POST /api/import/legacy", auth(h.Sync.ImportLegacy))

	return mw.Logging(mux)
}
