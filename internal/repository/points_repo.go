package repository

import (
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// PointsRepository keeps the append-only points ledger and the point
// totals on progress in step.
type PointsRepository struct {
	db *database.DB
}

// NewPointsRepository creates a new points repository
func NewPointsRepository(db *database.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// ledgerKeyExists reports whether an entry with key was already applied
func ledgerKeyExists(q database.DBTX, key string) (bool, error) {
	var count int
	if err := q.QueryRow("SELECT COUNT(*) FROM points_ledger WHERE idempotency_key = ?", key).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func insertLedgerEntry(q database.DBTX, e *models.PointsEntry) error {
	query := "INSERT INTO points_ledger (user_id, amount, reason, idempotency_key, created_at) VALUES (?, ?, ?, ?, ?)"
	id, err := q.ExecReturningID(query, e.UserID, e.Amount, e.Reason, e.IdempotencyKey, e.CreatedAt.UTC())
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// Apply records e and moves the user's totals: a positive amount adds to
// total points, a negative one to used points. A key seen before makes
// Apply a no-op and it returns false.
func (r *PointsRepository) Apply(e *models.PointsEntry) (bool, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	applied := false
	err := r.db.WithTx(func(tx *database.Tx) error {
		seen, err := ledgerKeyExists(tx, e.IdempotencyKey)
		if err != nil || seen {
			return err
		}
		if err := insertLedgerEntry(tx, e); err != nil {
			return err
		}
		earned, used := 0, 0
		if e.Amount >= 0 {
			earned = e.Amount
		} else {
			used = -e.Amount
		}
		if err := addPoints(tx, e.UserID, earned, used); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to apply points entry: %w", err)
	}
	return applied, nil
}

// History returns the user's ledger, newest first
func (r *PointsRepository) History(userID int64, limit int) ([]models.PointsEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, amount, reason, idempotency_key, created_at
		FROM points_ledger
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query points history: %w", err)
	}
	defer rows.Close()

	var out []models.PointsEntry
	for rows.Next() {
		var e models.PointsEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.IdempotencyKey, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan points entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Balance sums the user's ledger
func (r *PointsRepository) Balance(userID int64) (int, error) {
	var total int
	if err := r.db.QueryRow("SELECT COALESCE(SUM(amount), 0) FROM points_ledger WHERE user_id = ?", userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return total, nil
}

// EarnedSince sums practice earnings per user since from, for leaderboards.
// Parent awards and imports are not ranked.
func (r *PointsRepository) EarnedSince(from time.Time, limit int) ([]UserPoints, error) {
	query := `
		SELECT l.user_id, u.nickname, u.account_name, SUM(l.amount) AS earned
		FROM points_ledger l
		JOIN users u ON u.id = l.user_id
		WHERE l.reason = ? AND l.amount > 0 AND l.created_at >= ?
		GROUP BY l.user_id, u.nickname, u.account_name
		ORDER BY earned DESC, l.user_id
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.ReasonDailyCompletion, from.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query earned points: %w", err)
	}
	defer rows.Close()

	var out []UserPoints
	for rows.Next() {
		var up UserPoints
		if err := rows.Scan(&up.UserID, &up.Nickname, &up.AccountName, &up.Points); err != nil {
			return nil, fmt.Errorf("failed to scan earned points: %w", err)
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

// UserPoints is one leaderboard row
type UserPoints struct {
	UserID      int64
	Nickname    string
	AccountName string
	Points      int
}
