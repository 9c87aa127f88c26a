package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"typingclash/internal/clock"
	"typingclash/internal/database"
	"typingclash/internal/leaderboard"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/offline"
	"typingclash/internal/repository"
	"typingclash/internal/security"
	"typingclash/internal/testutil"
)

// 2026-03-02 is a Monday
var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db    *database.DB
	clock *clock.Fake
	queue *offline.Queue

	users        *repository.UserRepository
	progress     *repository.ProgressRepository
	exercises    *repository.ExerciseRepository
	achievements *repository.AchievementRepository
	points       *repository.PointsRepository
	gifts        *repository.GiftRepository
	relations    *repository.RelationRepository
	games        *repository.GameRepository
	settings     *repository.SettingsRepository
	board        *leaderboard.DBBoard

	auth        *AuthService
	practice    *PracticeService
	game        *GameService
	parent      *ParentService
	gift        *GiftService
	pointsSvc   *PointsService
	profile     *ProfileService
	sync        *SyncService
	legacy      *LegacyImportService
	leaderboard *LeaderboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := logger.NewNop()

	e := &testEnv{
		db:           db,
		clock:        clock.NewFake(testStart),
		queue:        offline.NewQueue(),
		users:        repository.NewUserRepository(db),
		progress:     repository.NewProgressRepository(db),
		exercises:    repository.NewExerciseRepository(db),
		achievements: repository.NewAchievementRepository(db),
		points:       repository.NewPointsRepository(db),
		gifts:        repository.NewGiftRepository(db),
		relations:    repository.NewRelationRepository(db),
		games:        repository.NewGameRepository(db),
		settings:     repository.NewSettingsRepository(db),
	}
	e.board = leaderboard.NewDBBoard(e.points)

	tokens := security.NewTokenIssuer("test-secret", time.Hour)
	e.auth = NewAuthService(e.users, e.settings, tokens, db, nil, e.clock,
		AuthConfig{SessionDuration: 24 * time.Hour}, log)
	e.practice = NewPracticeService(e.progress, e.exercises, e.achievements, e.points, nil, e.queue, e.clock,
		PracticeConfig{}, log)
	e.game = NewGameService(e.games, e.relations, e.practice, e.queue, e.clock, 0, log)
	e.parent = NewParentService(e.users, e.relations, e.progress, e.exercises, e.games, log)
	e.gift = NewGiftService(e.gifts, e.relations, e.progress, nil, e.clock, log)
	e.pointsSvc = NewPointsService(e.points, e.progress, e.relations, e.clock, log)
	e.profile = NewProfileService(e.users, db, log)
	e.sync = NewSyncService(e.practice, e.progress, e.queue, log)
	e.legacy = NewLegacyImportService(e.users, e.progress, e.exercises, e.achievements, e.points, e.settings,
		e.practice, e.clock, log)
	e.leaderboard = NewLeaderboardService(e.board, nil, e.clock, log)
	return e
}

func (e *testEnv) signup(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	in := SignupInput{AccountName: name, Password: "password123", Role: role}
	if role == models.RoleParent {
		in.Email = name + "@example.com"
	}
	_, user, err := e.auth.Signup(context.Background(), in)
	require.NoError(t, err)
	return user
}

// bind creates a parent and a student and binds them
func (e *testEnv) bind(t *testing.T, parentName, studentName string) (*models.User, *models.User) {
	t.Helper()
	parent := e.signup(t, parentName, models.RoleParent)
	student := e.signup(t, studentName, models.RoleStudent)
	_, err := e.parent.BindByInviteCode(parent, student.InviteCode)
	require.NoError(t, err)
	return parent, student
}

// completeDay runs one full practice day for user
func (e *testEnv) completeDay(t *testing.T, user *models.User) *CompleteResult {
	t.Helper()
	ctx := context.Background()
	_, err := e.practice.Start(ctx, user)
	require.NoError(t, err)
	e.clock.Advance(31 * time.Minute)
	res, err := e.practice.Complete(ctx, user)
	require.NoError(t, err)
	return res
}

func (e *testEnv) credit(t *testing.T, userID int64, amount int) {
	t.Helper()
	_, err := e.pointsSvc.Add(userID, amount, models.ReasonParentAward, "")
	require.NoError(t, err)
}
