package repository

import (
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"typingclash/internal/database"
	"typingclash/internal/models"
	"typingclash/internal/stats"
)

// ExerciseRepository stores daily records and per-letter statistics
type ExerciseRepository struct {
	db *database.DB
}

// NewExerciseRepository creates a new exercise repository
func NewExerciseRepository(db *database.DB) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

var dailyRecordColumns = []string{
	"user_id", "date", "day", "total_chars", "correct_chars", "total_time_ms",
	"earned_points", "accuracy", "avg_response_time_ms",
}

// UpsertDailyRecord writes the record for (user, date), replacing any
// earlier one for the same date.
func (r *ExerciseRepository) UpsertDailyRecord(userID int64, rec models.DailyRecord) error {
	query := r.db.Dialect.UpsertQuery("daily_records", []string{"user_id", "date"}, dailyRecordColumns)
	_, err := r.db.Exec(query,
		userID, rec.Date, rec.Day, rec.TotalChars, rec.CorrectChars, rec.TotalTimeMs,
		rec.EarnedPoints, rec.Accuracy, rec.AvgResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily record: %w", err)
	}
	return nil
}

const dailyRecordSelect = `
	SELECT day, date, total_chars, correct_chars, total_time_ms, earned_points, accuracy, avg_response_time_ms
	FROM daily_records
`

func scanDailyRecord(row rowScanner) (models.DailyRecord, error) {
	var rec models.DailyRecord
	err := row.Scan(
		&rec.Day,
		&rec.Date,
		&rec.TotalChars,
		&rec.CorrectChars,
		&rec.TotalTimeMs,
		&rec.EarnedPoints,
		&rec.Accuracy,
		&rec.AvgResponseTimeMs,
	)
	return rec, err
}

// ListDailyRecords returns the user's records, newest date first
func (r *ExerciseRepository) ListDailyRecords(userID int64) ([]models.DailyRecord, error) {
	rows, err := r.db.Query(dailyRecordSelect+" WHERE user_id = ? ORDER BY date DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily records: %w", err)
	}
	defer rows.Close()

	var records []models.DailyRecord
	for rows.Next() {
		rec, err := scanDailyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetDailyRecord returns the record for one date, or nil
func (r *ExerciseRepository) GetDailyRecord(userID int64, date string) (*models.DailyRecord, error) {
	rec, err := scanDailyRecord(r.db.QueryRow(dailyRecordSelect+" WHERE user_id = ? AND date = ?", userID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily record: %w", err)
	}
	return &rec, nil
}

var letterStatColumns = []string{
	"user_id", "letter", "total_attempts", "correct_attempts", "total_response_time_ms",
	"practice_attempts", "practice_correct", "practice_response_time_ms", "updated_at",
}

// UpsertLetterStats writes the given letters' counters in one transaction
func (r *ExerciseRepository) UpsertLetterStats(userID int64, letters map[rune]stats.LetterStat) error {
	if len(letters) == 0 {
		return nil
	}
	query := r.db.Dialect.UpsertQuery("letter_stats", []string{"user_id", "letter"}, letterStatColumns)
	now := time.Now().UTC()
	err := r.db.WithTx(func(tx *database.Tx) error {
		for letter, s := range letters {
			_, err := tx.Exec(query,
				userID, string(letter), s.TotalAttempts, s.CorrectAttempts, s.TotalResponseTimeMs,
				s.PracticeAttempts, s.PracticeCorrect, s.PracticeResponseTimeMs, now,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save letter stats: %w", err)
	}
	return nil
}

// GetLetterStats loads the user's full letter table
func (r *ExerciseRepository) GetLetterStats(userID int64) (stats.Table, error) {
	query := `
		SELECT letter, total_attempts, correct_attempts, total_response_time_ms,
			practice_attempts, practice_correct, practice_response_time_ms
		FROM letter_stats
		WHERE user_id = ?
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query letter stats: %w", err)
	}
	defer rows.Close()

	table := stats.NewTable()
	for rows.Next() {
		var (
			letter string
			s      stats.LetterStat
		)
		if err := rows.Scan(
			&letter,
			&s.TotalAttempts,
			&s.CorrectAttempts,
			&s.TotalResponseTimeMs,
			&s.PracticeAttempts,
			&s.PracticeCorrect,
			&s.PracticeResponseTimeMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan letter stat: %w", err)
		}
		ch, _ := utf8.DecodeRuneInString(letter)
		if ch == utf8.RuneError {
			continue
		}
		stat := s
		table[ch] = &stat
	}
	return table, rows.Err()
}
