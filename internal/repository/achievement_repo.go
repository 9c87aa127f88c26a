package repository

import (
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// AchievementRepository records unlocked achievements
type AchievementRepository struct {
	db *database.DB
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *database.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Unlock records the achievement. Unlocking one the user already has is a
// no-op that keeps the original unlock time.
func (r *AchievementRepository) Unlock(userID int64, achievementID string, at time.Time) error {
	query := r.db.Dialect.InsertIgnoreQuery("user_achievements", []string{"user_id", "achievement_id", "unlocked_at"})
	if _, err := r.db.Exec(query, userID, achievementID, at.UTC()); err != nil {
		return fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return nil
}

// List returns the user's achievements in unlock order
func (r *AchievementRepository) List(userID int64) ([]models.UnlockedAchievement, error) {
	query := `
		SELECT achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = ?
		ORDER BY unlocked_at, achievement_id
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var out []models.UnlockedAchievement
	for rows.Next() {
		var a models.UnlockedAchievement
		if err := rows.Scan(&a.ID, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
