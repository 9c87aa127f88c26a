package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typingclash/internal/clock"
	"typingclash/internal/leaderboard"
	"typingclash/internal/logger"
	"typingclash/internal/offline"
	"typingclash/internal/repository"
	"typingclash/internal/security"
	"typingclash/internal/service"
	"typingclash/internal/testutil"
)

type testAPI struct {
	clock   *clock.Fake
	router  http.Handler
	auth    *service.AuthService
	limiter *security.RateLimiter
}

func newTestAPI(t *testing.T, providers map[string]OAuthProvider) *testAPI {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := logger.NewNop()
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	queue := offline.NewQueue()

	users := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	exercises := repository.NewExerciseRepository(db)
	achievements := repository.NewAchievementRepository(db)
	points := repository.NewPointsRepository(db)
	gifts := repository.NewGiftRepository(db)
	relations := repository.NewRelationRepository(db)
	games := repository.NewGameRepository(db)
	settings := repository.NewSettingsRepository(db)
	board := leaderboard.NewDBBoard(points)

	tokens := security.NewTokenIssuer("test-secret", time.Hour)
	authSvc := service.NewAuthService(users, settings, tokens, db, nil, clk,
		service.AuthConfig{SessionDuration: 24 * time.Hour}, log)
	practice := service.NewPracticeService(progressRepo, exercises, achievements, points, board, queue, clk,
		service.PracticeConfig{}, log)
	game := service.NewGameService(games, relations, practice, queue, clk, 0, log)
	parent := service.NewParentService(users, relations, progressRepo, exercises, games, log)
	gift := service.NewGiftService(gifts, relations, progressRepo, nil, clk, log)
	pointsSvc := service.NewPointsService(points, progressRepo, relations, clk, log)
	profile := service.NewProfileService(users, db, log)
	syncSvc := service.NewSyncService(practice, progressRepo, queue, log)
	legacy := service.NewLegacyImportService(users, progressRepo, exercises, achievements, points, settings,
		practice, clk, log)
	ranking := service.NewLeaderboardService(board, nil, clk, log)

	csrf := security.NewCSRFGenerator("csrf-secret")
	limiter := security.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)
	mw := NewMiddleware(authSvc, csrf, limiter, log)

	router := NewRouter(mw, Handlers{
		Auth:     NewAuthHandler(authSvc, profile, practice, csrf, providers, "http://typing.test", "http://typing.test", log),
		Practice: NewPracticeHandler(practice, log),
		Game:     NewGameHandler(game, log),
		Parent:   NewParentHandler(parent, pointsSvc, log),
		Gift:     NewGiftHandler(gift, log),
		Points:   NewPointsHandler(pointsSvc, ranking, log),
		Sync:     NewSyncHandler(syncSvc, legacy, log),
	})
	return &testAPI{clock: clk, router: router, auth: authSvc, limiter: limiter}
}

// do sends a JSON request, authenticated with token when it is non-empty
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// signup creates an account and returns its bearer token and view
func (a *testAPI) signup(t *testing.T, name, role string) (string, userView) {
	t.Helper()
	body := map[string]string{"accountName": name, "password": "password123", "role": role}
	if role == "parent" {
		body["email"] = name + "@example.com"
	}
	rec := a.do(t, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[authResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func TestAPIStudentDay(t *testing.T) {
	api := newTestAPI(t, nil)
	kid, kidView := api.signup(t, "kid", "student")
	mum, _ := api.signup(t, "mum", "parent")

	t.Run("me", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/me", kid, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[meResponse](t, rec)
		assert.Equal(t, "kid", me.User.AccountName)
		assert.Empty(t, me.CSRFToken, "bearer clients need no csrf token")

		assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/me", "", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/me", "not-a-token", nil).Code)
	})

	t.Run("students cannot use parent routes", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodGet, "/api/parent/students", kid, nil).Code)
	})

	t.Run("bind", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/parent/students", mum, map[string]string{"inviteCode": kidView.InviteCode})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		students := decode[[]studentView](t, rec)
		require.Len(t, students, 1)
		assert.Equal(t, kidView.ID, students[0].ID)

		rec = api.do(t, http.MethodPost, "/api/parent/students", mum, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = api.do(t, http.MethodPost, "/api/parent/students", mum, map[string]string{"accountName": "kid"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("games are locked before practice", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/game/start", kid, map[string]string{"gameType": "snake"})
		require.Equal(t, http.StatusConflict, rec.Code)
		resp := decode[startGameResponse](t, rec)
		assert.False(t, resp.Decision.Allowed)
		assert.Equal(t, "practice_not_completed", string(resp.Decision.Reason))
	})

	t.Run("practice", func(t *testing.T) {
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/practice/init", kid, nil).Code)
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/practice/start", kid, nil).Code)

		rec := api.do(t, http.MethodPost, "/api/practice/complete", kid, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, "too early")

		rec = api.do(t, http.MethodPost, "/api/practice/input", kid, map[string]string{"key": "f"})
		require.Equal(t, http.StatusOK, rec.Code)

		api.clock.Advance(31 * time.Minute)
		rec = api.do(t, http.MethodPost, "/api/practice/complete", kid, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, "/api/practice/complete", kid, nil).Code)

		rec = api.do(t, http.MethodGet, "/api/progress", kid, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[service.ProgressView](t, rec)
		assert.Equal(t, 2, view.CurrentDay)
		assert.True(t, view.TodayCompleted)
		assert.Positive(t, view.AvailablePoints)

		rec = api.do(t, http.MethodGet, "/api/parent/students/"+itoa(kidView.ID)+"/records", mum, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]json.RawMessage](t, rec), 1)
	})

	t.Run("play", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/game/start", kid, map[string]string{"gameType": "space_typer"})
		assert.Equal(t, http.StatusForbidden, rec.Code, "premium game")

		rec = api.do(t, http.MethodPost, "/api/game/start", kid, map[string]string{"gameType": "snake"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[startGameResponse](t, rec)
		assert.Equal(t, (30 * time.Minute).Milliseconds(), resp.Decision.GrantedMs)

		api.clock.Advance(10 * time.Minute)
		rec = api.do(t, http.MethodPost, "/api/game/stop", kid, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, (10 * time.Minute).Milliseconds(), decode[gameRecordView](t, rec).TotalTimeMs)

		assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, "/api/game/stop", kid, nil).Code)
	})

	t.Run("gifts", func(t *testing.T) {
		path := "/api/parent/students/" + itoa(kidView.ID) + "/gifts"
		rec := api.do(t, http.MethodPost, path, mum, map[string]interface{}{"name": "Bike", "cost": 100000})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		bike := decode[giftView](t, rec)

		rec = api.do(t, http.MethodPost, path, mum, map[string]interface{}{"name": " ", "cost": 0})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Fields, "cost")

		rec = api.do(t, http.MethodPost, "/api/gifts/"+itoa(bike.ID)+"/redeem", kid, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Error, "need 100000")

		rec = api.do(t, http.MethodPost, path, mum, map[string]interface{}{"name": "Sticker", "cost": 1})
		require.Equal(t, http.StatusCreated, rec.Code)
		sticker := decode[giftView](t, rec)

		redeem := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/gifts/"+itoa(sticker.ID)+"/redeem", nil)
			req.Header.Set("Authorization", "Bearer "+kid)
			req.Header.Set(IdempotencyKeyHeader, "redeem-sticker-1")
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)
			return rec
		}
		require.Equal(t, http.StatusOK, redeem().Code)
		require.Equal(t, http.StatusOK, redeem().Code, "replay with the same key")

		rec = api.do(t, http.MethodGet, "/api/gifts?status=redeemed", kid, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]giftView](t, rec), 1)

		rec = api.do(t, http.MethodGet, "/api/points/history", kid, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]pointsEntryView](t, rec), 2, "daily credit and one redemption")

		assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodPost, "/api/gifts/"+itoa(sticker.ID)+"/claim", mum, nil).Code)
	})

	t.Run("leaderboard is public", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/leaderboard?limit=5", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entries := decode[[]leaderboard.Entry](t, rec)
		require.Len(t, entries, 1)
		assert.Equal(t, kidView.ID, entries[0].UserID)
	})

	t.Run("unbind", func(t *testing.T) {
		rec := api.do(t, http.MethodDelete, "/api/parent/students/"+itoa(kidView.ID), mum, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = api.do(t, http.MethodDelete, "/api/parent/students/"+itoa(kidView.ID), mum, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = api.do(t, http.MethodDelete, "/api/parent/students/abc", mum, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPILegacyImport(t *testing.T) {
	api := newTestAPI(t, nil)
	kid, _ := api.signup(t, "kid", "student")

	rec := api.do(t, http.MethodPost, "/api/import/legacy", kid, map[string]interface{}{"currentDay": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[errorResponse](t, rec).Issues)

	rec = api.do(t, http.MethodPost, "/api/import/legacy", kid, map[string]interface{}{
		"currentDay":  3,
		"totalPoints": 120,
		"usedPoints":  20,
		"settings":    map[string]interface{}{"nickname": "Speedy", "soundEnabled": true},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[service.MigrationResult](t, rec).Success)

	rec = api.do(t, http.MethodGet, "/api/import/legacy", kid, nil)
	assert.Equal(t, map[string]bool{"imported": true}, decode[map[string]bool](t, rec))

	rec = api.do(t, http.MethodGet, "/api/points", kid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decode[service.Balance](t, rec).AvailablePoints)

	rec = api.do(t, http.MethodPost, "/api/sync/flush", kid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.SyncReport](t, rec).Success)
}
