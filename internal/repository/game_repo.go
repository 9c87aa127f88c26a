package repository

import (
	"database/sql"
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// GameRepository handles the game catalog and per-day play records
type GameRepository struct {
	db *database.DB
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{db: db}
}

// ListTypes returns active game types in display order
func (r *GameRepository) ListTypes() ([]models.GameType, error) {
	query := `
		SELECT id, name, description, required_membership, required_level, is_active, sort_order
		FROM game_types
		WHERE is_active = ?
		ORDER BY sort_order, id
	`
	rows, err := r.db.Query(query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query game types: %w", err)
	}
	defer rows.Close()

	var types []models.GameType
	for rows.Next() {
		var g models.GameType
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.RequiredMembership, &g.RequiredLevel, &g.IsActive, &g.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan game type: %w", err)
		}
		types = append(types, g)
	}
	return types, rows.Err()
}

// UpsertType creates or replaces a catalog entry
func (r *GameRepository) UpsertType(g models.GameType) error {
	cols := []string{"id", "name", "description", "required_membership", "required_level", "is_active", "sort_order"}
	query := r.db.Dialect.UpsertQuery("game_types", []string{"id"}, cols)
	if _, err := r.db.Exec(query, g.ID, g.Name, g.Description, g.RequiredMembership, g.RequiredLevel, g.IsActive, g.SortOrder); err != nil {
		return fmt.Errorf("failed to save game type: %w", err)
	}
	return nil
}

// UpsertRecord writes the record for (user, game, date)
func (r *GameRepository) UpsertRecord(rec *models.GameRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	cols := []string{"user_id", "game_type", "date", "total_time_ms", "completed", "updated_at"}
	query := r.db.Dialect.UpsertQuery("game_records", []string{"user_id", "game_type", "date"}, cols)
	if _, err := r.db.Exec(query, rec.UserID, rec.GameType, rec.Date, rec.TotalTimeMs, rec.Completed, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save game record: %w", err)
	}
	return nil
}

const gameRecordSelect = `
	SELECT id, user_id, game_type, date, total_time_ms, completed, updated_at
	FROM game_records
`

func scanGameRecord(row rowScanner) (*models.GameRecord, error) {
	rec := &models.GameRecord{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.GameType, &rec.Date, &rec.TotalTimeMs, &rec.Completed, &rec.UpdatedAt)
	return rec, err
}

// GetRecord returns the record for one game and date, or nil
func (r *GameRepository) GetRecord(userID int64, gameType, date string) (*models.GameRecord, error) {
	rec, err := scanGameRecord(r.db.QueryRow(gameRecordSelect+" WHERE user_id = ? AND game_type = ? AND date = ?", userID, gameType, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game record: %w", err)
	}
	return rec, nil
}

// ListRecords returns the user's game records, newest date first
func (r *GameRepository) ListRecords(userID int64) ([]models.GameRecord, error) {
	rows, err := r.db.Query(gameRecordSelect+" WHERE user_id = ? ORDER BY date DESC, game_type", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game records: %w", err)
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		rec, err := scanGameRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// PlayedMs sums play time across every game on date
func (r *GameRepository) PlayedMs(userID int64, date string) (int64, error) {
	var total int64
	query := "SELECT COALESCE(SUM(total_time_ms), 0) FROM game_records WHERE user_id = ? AND date = ?"
	if err := r.db.QueryRow(query, userID, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum play time: %w", err)
	}
	return total, nil
}
