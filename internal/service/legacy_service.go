package service

import (
	"errors"
	"fmt"
	"strings"

	"typingclash/internal/clock"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/repository"
	"typingclash/internal/scoring"
	"typingclash/internal/stats"
)

// ErrInvalidImport is returned when legacy data fails validation. Nothing
// is written in that case.
var ErrInvalidImport = errors.New("invalid legacy data")

// ImportError lists every validation issue found in legacy data
type ImportError struct {
	Issues []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidImport, strings.Join(e.Issues, "; "))
}

func (e *ImportError) Unwrap() error {
	return ErrInvalidImport
}

// LegacyLetterStat is a letter's counters in the legacy export
type LegacyLetterStat struct {
	TotalAttempts     int   `json:"totalAttempts"`
	CorrectAttempts   int   `json:"correctAttempts"`
	TotalResponseTime int64 `json:"totalResponseTime"`
}

func (st LegacyLetterStat) issues(key string) []string {
	var out []string
	if st.TotalAttempts < 0 || st.CorrectAttempts < 0 || st.TotalResponseTime < 0 {
		out = append(out, fmt.Sprintf("letterStats.%s: counters must not be negative", key))
	}
	if st.CorrectAttempts > st.TotalAttempts {
		out = append(out, fmt.Sprintf("letterStats.%s: correctAttempts exceeds totalAttempts", key))
	}
	return out
}

// LegacyData is the progress blob kept by the old browser-only client
type LegacyData struct {
	CurrentDay        int                         `json:"currentDay"`
	ConsecutiveDays   int                         `json:"consecutiveDays"`
	LastCompletedDate string                      `json:"lastCompletedDate"`
	TotalPoints       int                         `json:"totalPoints"`
	UsedPoints        int                         `json:"usedPoints"`
	LetterStats       map[string]LegacyLetterStat `json:"letterStats"`
	DailyRecords      []models.DailyRecord        `json:"dailyRecords"`
	Achievements      []string                    `json:"achievements"`
	Settings          struct {
		Nickname     string `json:"nickname"`
		SoundEnabled bool   `json:"soundEnabled"`
	} `json:"settings"`
}

// MigrationResult reports what a legacy import did per module
type MigrationResult struct {
	Success         bool     `json:"success"`
	MigratedModules []string `json:"migratedModules"`
	Errors          []string `json:"errors"`
	Skipped         []string `json:"skipped"`
}

func legacyImportKey(userID int64) string {
	return fmt.Sprintf("legacy_import:%d", userID)
}

// LegacyImportService moves legacy client data into a user's account
type LegacyImportService struct {
	userRepo        *repository.UserRepository
	progressRepo    *repository.ProgressRepository
	exerciseRepo    *repository.ExerciseRepository
	achievementRepo *repository.AchievementRepository
	pointsRepo      *repository.PointsRepository
	settingsRepo    *repository.SettingsRepository
	practice        *PracticeService
	clock           clock.Clock
	log             *logger.Logger
}

// NewLegacyImportService creates a new legacy import service. practice
// may be nil when no live trackers exist, as in the backup CLI.
func NewLegacyImportService(userRepo *repository.UserRepository, progressRepo *repository.ProgressRepository,
	exerciseRepo *repository.ExerciseRepository, achievementRepo *repository.AchievementRepository,
	pointsRepo *repository.PointsRepository, settingsRepo *repository.SettingsRepository,
	practice *PracticeService, clk clock.Clock, log *logger.Logger) *LegacyImportService {
	return &LegacyImportService{
		userRepo:        userRepo,
		progressRepo:    progressRepo,
		exerciseRepo:    exerciseRepo,
		achievementRepo: achievementRepo,
		pointsRepo:      pointsRepo,
		settingsRepo:    settingsRepo,
		practice:        practice,
		clock:           clk,
		log:             log,
	}
}

// Validate checks legacy data without writing anything
func (s *LegacyImportService) Validate(data *LegacyData) error {
	var issues []string
	if data.CurrentDay < 1 {
		issues = append(issues, "currentDay must be >= 1")
	}
	if data.TotalPoints < 0 {
		issues = append(issues, "totalPoints must not be negative")
	}
	if data.UsedPoints < 0 {
		issues = append(issues, "usedPoints must not be negative")
	}
	if data.UsedPoints > data.TotalPoints {
		issues = append(issues, "usedPoints must not exceed totalPoints")
	}
	if data.ConsecutiveDays < 0 {
		issues = append(issues, "consecutiveDays must not be negative")
	}
	for key, st := range data.LetterStats {
		if len(key) != 1 || key[0] < 'A' || key[0] > 'Z' {
			issues = append(issues, fmt.Sprintf("invalid letter stats key: %s", key))
			continue
		}
		issues = append(issues, st.issues(key)...)
	}
	for i, rec := range data.DailyRecords {
		if rec.TotalChars < 0 || rec.CorrectChars < 0 || rec.TotalTimeMs < 0 || rec.EarnedPoints < 0 {
			issues = append(issues, fmt.Sprintf("dailyRecords[%d]: counters must not be negative", i))
		} else if rec.CorrectChars > rec.TotalChars {
			issues = append(issues, fmt.Sprintf("dailyRecords[%d]: correctChars exceeds totalChars", i))
		}
	}
	if len(issues) > 0 {
		return &ImportError{Issues: issues}
	}
	return nil
}

// AlreadyImported reports whether userID completed a legacy import
func (s *LegacyImportService) AlreadyImported(userID int64) (bool, error) {
	_, ok, err := s.settingsRepo.GetSetting(legacyImportKey(userID))
	return ok, err
}

// Import validates data and writes it module by module. A failing module
// is reported and the rest still run.
func (s *LegacyImportService) Import(user *models.User, data *LegacyData) (*MigrationResult, error) {
	if err := s.Validate(data); err != nil {
		return nil, err
	}
	res := &MigrationResult{MigratedModules: []string{}, Errors: []string{}, Skipped: []string{}}
	fail := func(module string, err error) {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", module, err))
	}

	// drop any live copy so it cannot overwrite what is imported
	if s.practice != nil {
		s.practice.Unload(user.ID)
	}

	if nickname := strings.TrimSpace(data.Settings.Nickname); nickname != "" {
		if err := s.userRepo.UpdateProfile(user.ID, nickname, data.Settings.SoundEnabled, user.Avatar); err != nil {
			fail("profile", err)
		} else {
			res.MigratedModules = append(res.MigratedModules, "profile")
		}
	} else {
		res.Skipped = append(res.Skipped, "profile (no data)")
	}

	if err := s.importProgress(user.ID, data); err != nil {
		fail("progress", err)
	} else {
		res.MigratedModules = append(res.MigratedModules, "progress")
	}

	if err := s.importPoints(user.ID, data); err != nil {
		fail("points", err)
	} else {
		res.MigratedModules = append(res.MigratedModules, "points")
	}

	if len(data.LetterStats) == 0 {
		res.Skipped = append(res.Skipped, "letterStats (no data)")
	} else {
		letters := make(map[rune]stats.LetterStat, len(data.LetterStats))
		for key, st := range data.LetterStats {
			letters[rune(key[0])] = stats.LetterStat{
				TotalAttempts:       st.TotalAttempts,
				CorrectAttempts:     st.CorrectAttempts,
				TotalResponseTimeMs: st.TotalResponseTime,
			}
		}
		if err := s.exerciseRepo.UpsertLetterStats(user.ID, letters); err != nil {
			fail("letterStats", err)
		} else {
			res.MigratedModules = append(res.MigratedModules, "letterStats")
		}
	}

	switch n := s.importRecords(user.ID, data.DailyRecords); {
	case len(data.DailyRecords) == 0:
		res.Skipped = append(res.Skipped, "dailyRecords (no data)")
	case n == 0:
		res.Errors = append(res.Errors, "dailyRecords: every record failed")
	default:
		res.MigratedModules = append(res.MigratedModules, fmt.Sprintf("dailyRecords (%d)", n))
	}

	switch n := s.importAchievements(user.ID, data.Achievements); {
	case len(data.Achievements) == 0:
		res.Skipped = append(res.Skipped, "achievements (no data)")
	case n > 0:
		res.MigratedModules = append(res.MigratedModules, fmt.Sprintf("achievements (%d)", n))
	}

	res.Success = len(res.Errors) == 0
	if res.Success {
		if err := s.settingsRepo.SetSetting(legacyImportKey(user.ID), clock.Date(s.clock.Now())); err != nil {
			s.log.Warn("failed to mark legacy import", "user_id", user.ID, "error", err)
		}
	}
	s.log.Info("legacy import finished", "user_id", user.ID, "success", res.Success,
		"modules", len(res.MigratedModules), "errors", len(res.Errors))
	return res, nil
}

func (s *LegacyImportService) importProgress(userID int64, data *LegacyData) error {
	p, err := s.progressRepo.Get(userID)
	if err != nil {
		return err
	}
	p.CurrentDay = data.CurrentDay
	p.ConsecutiveDays = data.ConsecutiveDays
	p.LastCompletedDate = data.LastCompletedDate
	return s.progressRepo.SaveSession(p)
}

// importPoints credits the legacy totals through the ledger under fixed
// keys, so running the import twice does not double them.
func (s *LegacyImportService) importPoints(userID int64, data *LegacyData) error {
	now := s.clock.Now()
	if data.TotalPoints > 0 {
		_, err := s.pointsRepo.Apply(&models.PointsEntry{
			UserID:         userID,
			Amount:         data.TotalPoints,
			Reason:         models.ReasonLegacyImport,
			IdempotencyKey: fmt.Sprintf("legacy:%d:earned", userID),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
	}
	if data.UsedPoints > 0 {
		_, err := s.pointsRepo.Apply(&models.PointsEntry{
			UserID:         userID,
			Amount:         -data.UsedPoints,
			Reason:         models.ReasonLegacyImport,
			IdempotencyKey: fmt.Sprintf("legacy:%d:used", userID),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// importRecords writes each record on its own and returns how many landed
func (s *LegacyImportService) importRecords(userID int64, records []models.DailyRecord) int {
	n := 0
	for _, rec := range records {
		if err := s.exerciseRepo.UpsertDailyRecord(userID, rec); err != nil {
			s.log.Debug("legacy daily record skipped", "user_id", userID, "date", rec.Date, "error", err)
			continue
		}
		n++
	}
	return n
}

func (s *LegacyImportService) importAchievements(userID int64, ids []string) int {
	n := 0
	now := s.clock.Now()
	for _, id := range ids {
		if _, ok := scoring.Find(id); !ok {
			continue
		}
		if err := s.achievementRepo.Unlock(userID, id, now); err != nil {
			s.log.Debug("legacy achievement skipped", "user_id", userID, "achievement", id, "error", err)
			continue
		}
		n++
	}
	return n
}
