package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"typingclash/internal/clock"
	"typingclash/internal/exercise"
	"typingclash/internal/keyboard"
	"typingclash/internal/leaderboard"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/offline"
	"typingclash/internal/progress"
	"typingclash/internal/repository"
	"typingclash/internal/scoring"
	"typingclash/internal/session"
	"typingclash/internal/stats"
)

// saveEveryKeystrokes is how many keystrokes may pass between progress writes
const saveEveryKeystrokes = 50

// PracticeConfig tunes the practice service
type PracticeConfig struct {
	Session   session.Config
	Exercise  exercise.Config
	SaveEvery int
}

// PracticeService owns one live session tracker per user and persists the
// progress those trackers produce.
type PracticeService struct {
	progressRepo    *repository.ProgressRepository
	exerciseRepo    *repository.ExerciseRepository
	achievementRepo *repository.AchievementRepository
	pointsRepo      *repository.PointsRepository
	board           leaderboard.Board
	writer          *storeWriter
	clock           clock.Clock
	cfg             PracticeConfig
	log             *logger.Logger

	mu       sync.Mutex
	trackers map[int64]*userTracker
}

type userTracker struct {
	mu         sync.Mutex
	tracker    *session.Tracker
	events     []session.Event
	keystrokes int
}

// NewPracticeService creates a new practice service. board may be nil.
func NewPracticeService(progressRepo *repository.ProgressRepository, exerciseRepo *repository.ExerciseRepository,
	achievementRepo *repository.AchievementRepository, pointsRepo *repository.PointsRepository,
	board leaderboard.Board, queue *offline.Queue, clk clock.Clock, cfg PracticeConfig, log *logger.Logger) *PracticeService {
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = saveEveryKeystrokes
	}
	if cfg.Exercise.MinKeystrokes <= 0 {
		cfg.Exercise = exercise.DefaultConfig
	}
	return &PracticeService{
		progressRepo:    progressRepo,
		exerciseRepo:    exerciseRepo,
		achievementRepo: achievementRepo,
		pointsRepo:      pointsRepo,
		board:           board,
		writer:          &storeWriter{queue: queue, log: log},
		clock:           clk,
		cfg:             cfg,
		log:             log,
		trackers:        make(map[int64]*userTracker),
	}
}

// InputResult is the outcome of one keystroke
type InputResult struct {
	Result   session.Result   `json:"result"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// CompleteResult is returned when a day is finished
type CompleteResult struct {
	Completion progress.Completion `json:"completion"`
	Snapshot   session.Snapshot    `json:"snapshot"`
}

// acquire returns the user's tracker with its lock held, loading it from
// the store on first use.
func (s *PracticeService) acquire(userID int64) (*userTracker, error) {
	s.mu.Lock()
	ut, ok := s.trackers[userID]
	if !ok {
		ut = &userTracker{}
		s.trackers[userID] = ut
	}
	s.mu.Unlock()

	ut.mu.Lock()
	if ut.tracker == nil {
		user, err := s.loadUser(userID)
		if err != nil {
			ut.mu.Unlock()
			return nil, err
		}
		gen := exercise.NewGenerator(s.cfg.Exercise, nil)
		ut.tracker = session.New(user, gen, s.clock, s.cfg.Session)
		ut.tracker.Subscribe(func(ev session.Event) {
			ut.events = append(ut.events, ev)
		})
		ut.tracker.Init()
		ut.events = nil
	}
	return ut, nil
}

func (s *PracticeService) loadUser(userID int64) (*progress.User, error) {
	p, err := s.progressRepo.Get(userID)
	if err != nil {
		return nil, err
	}
	letters, err := s.exerciseRepo.GetLetterStats(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.exerciseRepo.ListDailyRecords(userID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievementRepo.List(userID)
	if err != nil {
		return nil, err
	}
	return progress.FromModel(p, letters, records, achievements), nil
}

// with runs fn against the user's tracker and then persists whatever the
// tracker reported.
func (s *PracticeService) with(ctx context.Context, user *models.User, fn func(t *session.Tracker) error) error {
	ut, err := s.acquire(user.ID)
	if err != nil {
		return err
	}
	defer ut.mu.Unlock()

	fnErr := fn(ut.tracker)
	s.handleEvents(ctx, user, ut)
	return fnErr
}

func (s *PracticeService) handleEvents(ctx context.Context, user *models.User, ut *userTracker) {
	events := ut.events
	ut.events = nil

	save := false
	for _, ev := range events {
		switch ev.Type {
		case session.EventKeystroke:
			ut.keystrokes++
			if ut.keystrokes >= s.cfg.SaveEvery {
				save = true
			}
		case session.EventPaused, session.EventRestReminder, session.EventReset, session.EventStarted:
			save = true
		case session.EventCompleted:
			save = true
			if ev.Completion != nil {
				// progress first so the daily record and ledger see the new day
				s.saveProgress(ctx, ut)
				save = false
				s.recordCompletion(ctx, user, *ev.Completion)
			}
		}
	}
	if save {
		s.saveProgress(ctx, ut)
	}
}

// saveProgress writes the aggregate's scalar fields and touched letters.
// Points are left alone; they only move through the ledger.
func (s *PracticeService) saveProgress(ctx context.Context, ut *userTracker) {
	ut.keystrokes = 0
	user := ut.tracker.User()
	model := user.Model()
	letters := make(map[rune]stats.LetterStat)
	for _, r := range ut.tracker.TakeDirtyLetters() {
		letters[r] = user.Letters.Get(r)
	}

	s.writer.write(ctx, "", "save progress", func(ctx context.Context, _ string) error {
		if err := s.progressRepo.SaveSession(&model); err != nil {
			return err
		}
		return s.exerciseRepo.UpsertLetterStats(model.UserID, letters)
	})
}

// DailyKey is the ledger idempotency key for a day's completion points
func DailyKey(userID int64, date string) string {
	return fmt.Sprintf("daily:%d:%s", userID, date)
}

func (s *PracticeService) recordCompletion(ctx context.Context, user *models.User, c progress.Completion) {
	userID := user.ID
	rec := c.Record
	s.writer.write(ctx, "", "save daily record", func(ctx context.Context, _ string) error {
		return s.exerciseRepo.UpsertDailyRecord(userID, rec)
	})

	now := s.clock.Now()
	if c.Points.Total > 0 {
		entry := models.PointsEntry{
			UserID:         userID,
			Amount:         c.Points.Total,
			Reason:         models.ReasonDailyCompletion,
			IdempotencyKey: DailyKey(userID, rec.Date),
			CreatedAt:      now,
		}
		s.writer.write(ctx, entry.IdempotencyKey, "credit daily points", func(ctx context.Context, key string) error {
			e := entry
			e.IdempotencyKey = key
			_, err := s.pointsRepo.Apply(&e)
			return err
		})
	}

	for _, a := range c.NewAchievements {
		id := a.ID
		s.writer.write(ctx, "", "unlock achievement", func(ctx context.Context, _ string) error {
			return s.achievementRepo.Unlock(userID, id, now)
		})
	}

	if s.board != nil && c.Points.Total > 0 {
		name := user.Nickname
		if name == "" {
			name = user.AccountName
		}
		if err := s.board.Add(ctx, userID, name, c.Points.Total, now); err != nil {
			s.log.Warn("failed to update leaderboard", "user_id", userID, "error", err)
		}
	}
	s.log.Info("practice day completed", "user_id", userID, "day", rec.Day, "points", c.Points.Total,
		"achievements", len(c.NewAchievements))
}

// Init rolls the date and prepares today's drill
func (s *PracticeService) Init(ctx context.Context, user *models.User) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.with(ctx, user, func(t *session.Tracker) error {
		snap = t.Init()
		return nil
	})
	return snap, err
}

// Snapshot returns the current view of the user's session
func (s *PracticeService) Snapshot(ctx context.Context, user *models.User) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.with(ctx, user, func(t *session.Tracker) error {
		snap = t.Snapshot()
		return nil
	})
	return snap, err
}

func (s *PracticeService) transition(ctx context.Context, user *models.User, step func(t *session.Tracker) error) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.with(ctx, user, func(t *session.Tracker) error {
		err := step(t)
		snap = t.Snapshot()
		return err
	})
	return snap, err
}

// Start begins timing today's practice
func (s *PracticeService) Start(ctx context.Context, user *models.User) (session.Snapshot, error) {
	return s.transition(ctx, user, (*session.Tracker).Start)
}

// Pause freezes the session timer
func (s *PracticeService) Pause(ctx context.Context, user *models.User) (session.Snapshot, error) {
	return s.transition(ctx, user, (*session.Tracker).Pause)
}

// Resume continues a paused session
func (s *PracticeService) Resume(ctx context.Context, user *models.User) (session.Snapshot, error) {
	return s.transition(ctx, user, (*session.Tracker).Resume)
}

// Restart begins re-practice of the completed day
func (s *PracticeService) Restart(ctx context.Context, user *models.User) (session.Snapshot, error) {
	return s.transition(ctx, user, (*session.Tracker).Restart)
}

// Reset abandons the running segment
func (s *PracticeService) Reset(ctx context.Context, user *models.User) (session.Snapshot, error) {
	return s.transition(ctx, user, func(t *session.Tracker) error {
		t.Reset()
		return nil
	})
}

// DismissRest hides the rest reminder
func (s *PracticeService) DismissRest(ctx context.Context, user *models.User) (session.Snapshot, error) {
	return s.transition(ctx, user, func(t *session.Tracker) error {
		t.DismissRestReminder()
		return nil
	})
}

// Input feeds one keystroke to the daily drill, or to re-practice when
// practice is set.
func (s *PracticeService) Input(ctx context.Context, user *models.User, key string, practice bool) (InputResult, error) {
	r, _ := utf8.DecodeRuneInString(key)
	var out InputResult
	err := s.with(ctx, user, func(t *session.Tracker) error {
		switch {
		case key == "" || r == utf8.RuneError:
			out.Result = session.Ignored
		case practice:
			out.Result = t.HandlePracticeInput(r)
		default:
			out.Result = t.HandleInput(r)
		}
		out.Snapshot = t.Snapshot()
		return nil
	})
	return out, err
}

// Complete finishes today once enough time was practised
func (s *PracticeService) Complete(ctx context.Context, user *models.User) (*CompleteResult, error) {
	var out *CompleteResult
	err := s.with(ctx, user, func(t *session.Tracker) error {
		c, err := t.Complete()
		if err != nil {
			return err
		}
		out = &CompleteResult{Completion: c, Snapshot: t.Snapshot()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProgressView summarises a user's practice history
type ProgressView struct {
	CurrentDay        int                  `json:"currentDay"`
	ConsecutiveDays   int                  `json:"consecutiveDays"`
	LastCompletedDate string               `json:"lastCompletedDate"`
	TotalPoints       int                  `json:"totalPoints"`
	UsedPoints        int                  `json:"usedPoints"`
	AvailablePoints   int                  `json:"availablePoints"`
	Today             progress.Today       `json:"today"`
	TodayCompleted    bool                 `json:"todayCompleted"`
	DayDescription    string               `json:"dayDescription"`
	Stage             string               `json:"stage"`
	Stats             stats.UserStats      `json:"stats"`
	WeakLetters       []string             `json:"weakLetters"`
	Records           []models.DailyRecord `json:"records"`
}

// Progress returns the user's practice summary. Point totals are read from
// the store since gifts and parent awards change them outside practice.
func (s *PracticeService) Progress(ctx context.Context, user *models.User) (*ProgressView, error) {
	stored, err := s.progressRepo.Get(user.ID)
	if err != nil {
		return nil, err
	}

	var view *ProgressView
	err = s.with(ctx, user, func(t *session.Tracker) error {
		u := t.User()
		u.TotalPoints = stored.TotalPoints
		u.UsedPoints = stored.UsedPoints

		today := clock.Date(s.clock.Now())
		view = &ProgressView{
			CurrentDay:        u.CurrentDay,
			ConsecutiveDays:   u.ConsecutiveDays,
			LastCompletedDate: u.LastCompletedDate,
			TotalPoints:       u.TotalPoints,
			UsedPoints:        u.UsedPoints,
			AvailablePoints:   u.AvailablePoints(),
			Today:             u.Today,
			TodayCompleted:    u.TodayCompleted(today),
			DayDescription:    keyboard.DayDescription(u.CurrentDay),
			Stage:             keyboard.StageDescription(u.CurrentDay),
			Stats:             u.Stats(),
			WeakLetters:       []string{},
		}
		for _, r := range u.Letters.Weak(keyboard.CharsForDay(u.CurrentDay), s.cfg.Exercise.WeakThreshold) {
			view.WeakLetters = append(view.WeakLetters, string(r))
		}
		view.Records = make([]models.DailyRecord, 0, len(u.Records))
		for i := len(u.Records) - 1; i >= 0; i-- {
			view.Records = append(view.Records, u.Records[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AchievementView is a catalog entry with the user's standing on it
type AchievementView struct {
	scoring.Achievement
	Unlocked   bool                 `json:"unlocked"`
	UnlockedAt *time.Time           `json:"unlockedAt,omitempty"`
	Progress   scoring.ProgressInfo `json:"progress"`
}

// Achievements lists the whole catalog with unlock state and progress
func (s *PracticeService) Achievements(ctx context.Context, user *models.User) ([]AchievementView, error) {
	var out []AchievementView
	err := s.with(ctx, user, func(t *session.Tracker) error {
		u := t.User()
		unlocked := make(map[string]time.Time, len(u.Achievements))
		for _, a := range u.Achievements {
			unlocked[a.ID] = a.UnlockedAt
		}
		st := u.Stats()
		for _, a := range scoring.Catalog() {
			v := AchievementView{Achievement: a}
			if at, ok := unlocked[a.ID]; ok {
				v.Unlocked = true
				v.UnlockedAt = &at
			}
			v.Progress, _ = scoring.Progress(a.ID, st)
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// CompletedToday reports whether the user finished today's practice, and
// how many milliseconds they practised today.
func (s *PracticeService) CompletedToday(ctx context.Context, user *models.User) (bool, int64, error) {
	var (
		done bool
		ms   int64
	)
	err := s.with(ctx, user, func(t *session.Tracker) error {
		today := clock.Date(s.clock.Now())
		u := t.User()
		done = u.TodayCompleted(today)
		if u.Today.Date == today {
			ms = t.Elapsed().Milliseconds()
		}
		return nil
	})
	return done, ms, err
}

// Persist writes the user's live aggregate straight to the store,
// reporting the first failure instead of queueing it.
func (s *PracticeService) Persist(userID int64) error {
	s.mu.Lock()
	ut, ok := s.trackers[userID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	ut.mu.Lock()
	defer ut.mu.Unlock()
	if ut.tracker == nil {
		return nil
	}
	user := ut.tracker.User()
	model := user.Model()
	if err := s.progressRepo.SaveSession(&model); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	letters := make(map[rune]stats.LetterStat, len(user.Letters))
	for r, st := range user.Letters {
		letters[r] = *st
	}
	if err := s.exerciseRepo.UpsertLetterStats(userID, letters); err != nil {
		return fmt.Errorf("letterStats: %w", err)
	}
	ut.tracker.TakeDirtyLetters()
	return nil
}

// Loaded returns the live aggregate's scalar fields when the user has a
// tracker in memory.
func (s *PracticeService) Loaded(userID int64) (models.Progress, bool) {
	s.mu.Lock()
	ut, ok := s.trackers[userID]
	s.mu.Unlock()
	if !ok {
		return models.Progress{}, false
	}
	ut.mu.Lock()
	defer ut.mu.Unlock()
	if ut.tracker == nil {
		return models.Progress{}, false
	}
	return ut.tracker.User().Model(), true
}

// Unload drops the user's tracker without saving; the next call reloads it
// from the store.
func (s *PracticeService) Unload(userID int64) {
	s.mu.Lock()
	ut, ok := s.trackers[userID]
	delete(s.trackers, userID)
	s.mu.Unlock()
	if ok {
		// wait for any call in flight on the old tracker
		ut.mu.Lock()
		ut.mu.Unlock()
	}
}

// Release saves and unloads the user's tracker, typically at logout
func (s *PracticeService) Release(ctx context.Context, userID int64) {
	s.mu.Lock()
	ut, ok := s.trackers[userID]
	delete(s.trackers, userID)
	s.mu.Unlock()
	if !ok {
		return
	}
	ut.mu.Lock()
	defer ut.mu.Unlock()
	if ut.tracker != nil {
		if ut.tracker.State() == session.StateRunning {
			if err := ut.tracker.Pause(); err != nil {
				s.log.Warn("failed to pause tracker on release", "user_id", userID, "error", err)
			}
			ut.events = nil
		}
		s.saveProgress(ctx, ut)
	}
}

// ReleaseAll saves and unloads every live tracker, at shutdown
func (s *PracticeService) ReleaseAll(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.trackers))
	for id := range s.trackers {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Release(ctx, id)
	}
	return len(ids)
}

// IsSessionError reports whether err is a session state error the client
// caused, as opposed to a storage failure.
func IsSessionError(err error) bool {
	return errors.Is(err, session.ErrAlreadyCompleted) ||
		errors.Is(err, session.ErrInvalidTransition) ||
		errors.Is(err, session.ErrNotEnoughTime) ||
		errors.Is(err, session.ErrNotCompleted)
}
