package repository

import (
	"database/sql"
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// ProgressRepository persists the per-user practice aggregate
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

var progressColumns = []string{
	"user_id", "current_day", "consecutive_days", "last_completed_date", "total_points", "used_points",
	"today_date", "today_started_at", "today_total_time_ms", "today_completed", "today_total_chars",
	"today_correct_chars", "updated_at",
}

func getProgress(q database.DBTX, userID int64) (*models.Progress, error) {
	query := `
		SELECT user_id, current_day, consecutive_days, last_completed_date, total_points, used_points,
			today_date, today_started_at, today_total_time_ms, today_completed, today_total_chars,
			today_correct_chars, updated_at
		FROM progress
		WHERE user_id = ?
	`
	p := &models.Progress{}
	var started sql.NullTime
	err := q.QueryRow(query, userID).Scan(
		&p.UserID,
		&p.CurrentDay,
		&p.ConsecutiveDays,
		&p.LastCompletedDate,
		&p.TotalPoints,
		&p.UsedPoints,
		&p.TodayDate,
		&started,
		&p.TodayTotalTimeMs,
		&p.TodayCompleted,
		&p.TodayTotalChars,
		&p.TodayCorrectChars,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if started.Valid {
		t := started.Time
		p.TodayStartedAt = &t
	}
	return p, nil
}

// Get returns the user's progress, inserting the default row when the user
// has none yet.
func (r *ProgressRepository) Get(userID int64) (*models.Progress, error) {
	p, err := getProgress(r.db, userID)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	insert := r.db.Dialect.InsertIgnoreQuery("progress", []string{"user_id", "updated_at"})
	if _, err := r.db.Exec(insert, userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	p, err = getProgress(r.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// Save writes every field of p. Points are written as given; callers that
// only move points use AddPoints so concurrent redemptions are not lost.
func (r *ProgressRepository) Save(p *models.Progress) error {
	p.UpdatedAt = time.Now().UTC()
	query := r.db.Dialect.UpsertQuery("progress", []string{"user_id"}, progressColumns)
	_, err := r.db.Exec(query,
		p.UserID, p.CurrentDay, p.ConsecutiveDays, p.LastCompletedDate, p.TotalPoints, p.UsedPoints,
		p.TodayDate, nullTime(p.TodayStartedAt), p.TodayTotalTimeMs, p.TodayCompleted, p.TodayTotalChars,
		p.TodayCorrectChars, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// SaveSession writes the day, streak and today's counters but leaves the
// point columns alone.
func (r *ProgressRepository) SaveSession(p *models.Progress) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE progress SET current_day = ?, consecutive_days = ?, last_completed_date = ?,
			today_date = ?, today_started_at = ?, today_total_time_ms = ?, today_completed = ?,
			today_total_chars = ?, today_correct_chars = ?, updated_at = ?
		WHERE user_id = ?
	`
	_, err := r.db.Exec(query,
		p.CurrentDay, p.ConsecutiveDays, p.LastCompletedDate,
		p.TodayDate, nullTime(p.TodayStartedAt), p.TodayTotalTimeMs, p.TodayCompleted,
		p.TodayTotalChars, p.TodayCorrectChars, p.UpdatedAt, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// addPoints moves the point totals relative to their stored values
func addPoints(q database.DBTX, userID int64, earned, used int) error {
	query := `
		UPDATE progress SET total_points = total_points + ?, used_points = used_points + ?, updated_at = ?
		WHERE user_id = ?
	`
	result, err := q.Exec(query, earned, used, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no progress row for user %d", userID)
	}
	return nil
}
