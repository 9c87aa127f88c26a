package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"typingclash/internal/clock"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/offline"
	"typingclash/internal/playtime"
	"typingclash/internal/repository"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrGameLocked     = errors.New("game requires a higher membership or level")
	ErrGameNotAllowed = errors.New("game cannot be started now")
	ErrGameNotRunning = errors.New("no game is running")
	ErrGameTimeUsedUp = errors.New("today's game time is used up")
	ErrAlreadyPlaying = errors.New("a game is already running")
)

// GameService gates reward games behind practice and tracks play time
type GameService struct {
	gameRepo     *repository.GameRepository
	relationRepo *repository.RelationRepository
	practice     *PracticeService
	writer       *storeWriter
	clock        clock.Clock
	dailyCap     time.Duration
	log          *logger.Logger

	mu       sync.Mutex
	trackers map[int64]*gameTracker
}

type gameTracker struct {
	tracker *playtime.Tracker
	granted time.Duration
}

// NewGameService creates a new game service
func NewGameService(gameRepo *repository.GameRepository, relationRepo *repository.RelationRepository, practice *PracticeService,
	queue *offline.Queue, clk clock.Clock, dailyCap time.Duration, log *logger.Logger) *GameService {
	if dailyCap <= 0 {
		dailyCap = playtime.DailyGameCap
	}
	return &GameService{
		gameRepo:     gameRepo,
		relationRepo: relationRepo,
		practice:     practice,
		writer:       &storeWriter{queue: queue, log: log},
		clock:        clk,
		dailyCap:     dailyCap,
		log:          log,
		trackers:     make(map[int64]*gameTracker),
	}
}

// GameStatus is everything the client needs to show the game menu
type GameStatus struct {
	CompletedToday bool               `json:"completedToday"`
	Ratio          playtime.Ratio     `json:"ratio"`
	Allowance      playtime.Allowance `json:"allowance"`
	Decision       playtime.Decision  `json:"decision"`
	RemainingMs    int64              `json:"remainingMs"`
	Playing        string             `json:"playing,omitempty"`
}

// GameTypeView is a catalog entry with its availability to the user
type GameTypeView struct {
	models.GameType
	Available bool `json:"available"`
}

func (s *GameService) tracker(userID int64) (*gameTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if gt, ok := s.trackers[userID]; ok && !gt.tracker.Stale(now) {
		return gt, nil
	}
	s.evictStale(now)
	today := clock.Date(now)
	played, err := s.gameRepo.PlayedMs(userID, today)
	if err != nil {
		return nil, err
	}
	prev := &playtime.Tracking{
		Date:        today,
		TotalTimeMs: played,
		Completed:   time.Duration(played)*time.Millisecond >= s.dailyCap,
	}
	gt := &gameTracker{tracker: playtime.NewTracker(s.clock, s.dailyCap, prev)}
	s.trackers[userID] = gt
	return gt, nil
}

// evictStale drops idle trackers left over from earlier dates. s.mu must
// be held.
func (s *GameService) evictStale(now time.Time) {
	for id, gt := range s.trackers {
		if gt.tracker.Stale(now) {
			delete(s.trackers, id)
		}
	}
}

// StopAll stops every running game and records its time. It returns the
// number of games stopped.
func (s *GameService) StopAll(ctx context.Context) int {
	s.mu.Lock()
	running := make(map[int64]*gameTracker, len(s.trackers))
	for id, gt := range s.trackers {
		running[id] = gt
	}
	s.mu.Unlock()

	stopped := 0
	for userID, gt := range running {
		game, playing := gt.tracker.Playing()
		if !playing {
			continue
		}
		tracking, playedMs := gt.tracker.Stop()
		s.saveRecord(ctx, userID, game, tracking, playedMs)
		stopped++
	}
	if stopped > 0 {
		s.log.Info("running games stopped", "count", stopped)
	}
	return stopped
}

// Status evaluates the play-time gate for user
func (s *GameService) Status(ctx context.Context, user *models.User) (*GameStatus, error) {
	completed, practiceMs, err := s.practice.CompletedToday(ctx, user)
	if err != nil {
		return nil, err
	}
	rel, err := s.relationRepo.GetByStudent(user.ID)
	if err != nil {
		return nil, err
	}
	gt, err := s.tracker(user.ID)
	if err != nil {
		return nil, err
	}

	ratio := playtime.RatioFor(rel)
	playedMs := gt.tracker.Tracking().TotalTimeMs
	allowance := playtime.Compute(playtime.PracticeMinutes(practiceMs), ratio, playtime.PracticeMinutes(playedMs))
	decision := playtime.CanStartGame(playtime.AccountFor(user), completed, allowance, s.clock.Now())

	status := &GameStatus{
		CompletedToday: completed,
		Ratio:          ratio,
		Allowance:      allowance,
		Decision:       decision,
		RemainingMs:    gt.tracker.Remaining().Milliseconds(),
	}
	if game, playing := gt.tracker.Playing(); playing {
		status.Playing = game
	}
	return status, nil
}

// AvailablePlayMinutes returns the play minutes the user has left today
func (s *GameService) AvailablePlayMinutes(ctx context.Context, user *models.User) (int, error) {
	status, err := s.Status(ctx, user)
	if err != nil {
		return 0, err
	}
	return status.Allowance.AvailableMinutes, nil
}

// CanStartGame reports whether the user may start a game now
func (s *GameService) CanStartGame(ctx context.Context, user *models.User) (playtime.Decision, error) {
	status, err := s.Status(ctx, user)
	if err != nil {
		return playtime.Decision{}, err
	}
	return status.Decision, nil
}

// Types lists the active catalog with per-user availability
func (s *GameService) Types(user *models.User) ([]GameTypeView, error) {
	types, err := s.gameRepo.ListTypes()
	if err != nil {
		return nil, err
	}
	tier := user.EffectiveTier(s.clock.Now())
	out := make([]GameTypeView, 0, len(types))
	for _, g := range types {
		out = append(out, GameTypeView{GameType: g, Available: g.AvailableTo(tier, user.Level)})
	}
	return out, nil
}

// Start begins a game session when the gate allows it
func (s *GameService) Start(ctx context.Context, user *models.User, gameType string) (playtime.Decision, error) {
	types, err := s.Types(user)
	if err != nil {
		return playtime.Decision{}, err
	}
	var game *GameTypeView
	for i := range types {
		if types[i].ID == gameType {
			game = &types[i]
			break
		}
	}
	if game == nil {
		return playtime.Decision{}, ErrGameNotFound
	}
	if !game.Available {
		return playtime.Decision{}, ErrGameLocked
	}

	status, err := s.Status(ctx, user)
	if err != nil {
		return playtime.Decision{}, err
	}
	if status.Playing != "" {
		return status.Decision, ErrAlreadyPlaying
	}
	if !status.Decision.Allowed {
		return status.Decision, ErrGameNotAllowed
	}

	gt, err := s.tracker(user.ID)
	if err != nil {
		return playtime.Decision{}, err
	}
	if !gt.tracker.Start(gameType) {
		return status.Decision, ErrGameTimeUsedUp
	}
	s.mu.Lock()
	gt.granted = time.Duration(status.Decision.GrantedMs) * time.Millisecond
	s.mu.Unlock()

	s.log.Info("game started", "user_id", user.ID, "game", gameType, "granted_ms", status.Decision.GrantedMs)
	return status.Decision, nil
}

// Heartbeat checks a running game against its limits and reports whether
// it was stopped. A stopped game's time is recorded.
func (s *GameService) Heartbeat(ctx context.Context, user *models.User) (bool, error) {
	gt, err := s.tracker(user.ID)
	if err != nil {
		return false, err
	}
	game, playing := gt.tracker.Playing()
	if !playing {
		return false, ErrGameNotRunning
	}
	before := gt.tracker.Tracking().TotalTimeMs

	s.mu.Lock()
	granted := gt.granted
	s.mu.Unlock()
	if !gt.tracker.Update(granted) {
		return false, nil
	}
	after := gt.tracker.Tracking()
	s.saveRecord(ctx, user.ID, game, after, after.TotalTimeMs-before)
	return true, nil
}

// Stop ends the running game and records its time
func (s *GameService) Stop(ctx context.Context, user *models.User) (*models.GameRecord, error) {
	gt, err := s.tracker(user.ID)
	if err != nil {
		return nil, err
	}
	game, playing := gt.tracker.Playing()
	if !playing {
		return nil, ErrGameNotRunning
	}
	tracking, playedMs := gt.tracker.Stop()
	rec := s.saveRecord(ctx, user.ID, game, tracking, playedMs)
	s.log.Info("game stopped", "user_id", user.ID, "game", game, "played_ms", playedMs)
	return rec, nil
}

func (s *GameService) saveRecord(ctx context.Context, userID int64, game string, tracking playtime.Tracking, playedMs int64) *models.GameRecord {
	rec := &models.GameRecord{
		UserID:    userID,
		GameType:  game,
		Date:      tracking.Date,
		Completed: tracking.Completed,
	}
	existing, err := s.gameRepo.GetRecord(userID, game, tracking.Date)
	if err != nil {
		s.log.Warn("failed to read game record", "user_id", userID, "error", err)
	}
	if existing != nil {
		rec.TotalTimeMs = existing.TotalTimeMs
	}
	rec.TotalTimeMs += playedMs

	toSave := *rec
	s.writer.write(ctx, "", "save game record", func(ctx context.Context, _ string) error {
		r := toSave
		return s.gameRepo.UpsertRecord(&r)
	})
	return rec
}

// Records lists a user's game records
func (s *GameService) Records(userID int64) ([]models.GameRecord, error) {
	records, err := s.gameRepo.ListRecords(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list game records: %w", err)
	}
	return records, nil
}
