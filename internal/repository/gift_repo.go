package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// ErrGiftChanged is returned when a gift left the expected status while
// it was being updated.
var ErrGiftChanged = errors.New("gift changed concurrently")

// GiftRepository handles gifts and their redemption
type GiftRepository struct {
	db *database.DB
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(db *database.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

const giftColumns = `id, parent_id, student_id, name, description, cost, status, redeemed_at, claimed_at,
	created_at, updated_at`

func scanGift(row rowScanner) (*models.Gift, error) {
	g := &models.Gift{}
	var redeemed, claimed sql.NullTime
	err := row.Scan(
		&g.ID,
		&g.ParentID,
		&g.StudentID,
		&g.Name,
		&g.Description,
		&g.Cost,
		&g.Status,
		&redeemed,
		&claimed,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if redeemed.Valid {
		t := redeemed.Time
		g.RedeemedAt = &t
	}
	if claimed.Valid {
		t := claimed.Time
		g.ClaimedAt = &t
	}
	return g, nil
}

func getGift(q database.DBTX, id int64) (*models.Gift, error) {
	g, err := scanGift(q.QueryRow("SELECT "+giftColumns+" FROM gifts WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// Create inserts a new active gift
func (r *GiftRepository) Create(g *models.Gift) error {
	now := time.Now().UTC()
	g.Status = models.GiftActive
	query := `
		INSERT INTO gifts (parent_id, student_id, name, description, cost, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, g.ParentID, g.StudentID, g.Name, g.Description, g.Cost, g.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to create gift: %w", err)
	}
	g.ID = id
	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

// Get retrieves a gift by ID
func (r *GiftRepository) Get(id int64) (*models.Gift, error) {
	g, err := getGift(r.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}
	return g, nil
}

// ListForStudent returns the student's gifts, optionally filtered by status
func (r *GiftRepository) ListForStudent(studentID int64, status models.GiftStatus) ([]models.Gift, error) {
	query := "SELECT " + giftColumns + " FROM gifts WHERE student_id = ?"
	args := []interface{}{studentID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at, id"
	return r.list(query, args...)
}

// ListByParent returns gifts a parent created, optionally for one student
func (r *GiftRepository) ListByParent(parentID, studentID int64) ([]models.Gift, error) {
	query := "SELECT " + giftColumns + " FROM gifts WHERE parent_id = ?"
	args := []interface{}{parentID}
	if studentID != 0 {
		query += " AND student_id = ?"
		args = append(args, studentID)
	}
	query += " ORDER BY created_at, id"
	return r.list(query, args...)
}

func (r *GiftRepository) list(query string, args ...interface{}) ([]models.Gift, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gifts: %w", err)
	}
	defer rows.Close()

	var gifts []models.Gift
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, *g)
	}
	return gifts, rows.Err()
}

// Update changes an active gift's editable fields
func (r *GiftRepository) Update(g *models.Gift) error {
	g.UpdatedAt = time.Now().UTC()
	query := "UPDATE gifts SET name = ?, description = ?, cost = ?, updated_at = ? WHERE id = ? AND status = ?"
	result, err := r.db.Exec(query, g.Name, g.Description, g.Cost, g.UpdatedAt, g.ID, models.GiftActive)
	if err != nil {
		return fmt.Errorf("failed to update gift: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrGiftChanged
	}
	return nil
}

// Delete removes a gift
func (r *GiftRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM gifts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete gift: %w", err)
	}
	return nil
}

// RedeemCheck validates a redemption against the locked gift and the
// student's progress. Its error aborts the redemption unchanged.
type RedeemCheck func(g *models.Gift, p *models.Progress) error

// Redeem marks the gift redeemed, charges its cost to the student's used
// points and appends the ledger entry, all in one transaction. A replayed
// key returns the gift without charging again.
func (r *GiftRepository) Redeem(giftID int64, key string, now time.Time, check RedeemCheck) (*models.Gift, error) {
	var gift *models.Gift
	err := r.db.WithTx(func(tx *database.Tx) error {
		g, err := getGift(tx, giftID)
		if err != nil {
			return fmt.Errorf("failed to get gift: %w", err)
		}

		seen, err := ledgerKeyExists(tx, key)
		if err != nil {
			return fmt.Errorf("failed to check ledger: %w", err)
		}
		if seen && g != nil {
			gift = g
			return nil
		}

		var p *models.Progress
		if g != nil {
			p, err = getProgress(tx, g.StudentID)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("failed to get progress: %w", err)
			}
		}
		if err := check(g, p); err != nil {
			return err
		}

		at := now.UTC()
		result, err := tx.Exec("UPDATE gifts SET status = ?, redeemed_at = ?, updated_at = ? WHERE id = ? AND status = ?",
			models.GiftRedeemed, at, at, g.ID, models.GiftActive)
		if err != nil {
			return fmt.Errorf("failed to redeem gift: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrGiftChanged
		}
		if err := addPoints(tx, g.StudentID, 0, g.Cost); err != nil {
			return fmt.Errorf("failed to charge points: %w", err)
		}
		entry := &models.PointsEntry{
			UserID:         g.StudentID,
			Amount:         -g.Cost,
			Reason:         models.ReasonGiftRedemption,
			IdempotencyKey: key,
			CreatedAt:      at,
		}
		if err := insertLedgerEntry(tx, entry); err != nil {
			return fmt.Errorf("failed to write ledger: %w", err)
		}

		g.Status = models.GiftRedeemed
		g.RedeemedAt = &at
		g.UpdatedAt = at
		gift = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gift, nil
}

// Claim marks a redeemed gift as handed over
func (r *GiftRepository) Claim(id int64, now time.Time) error {
	at := now.UTC()
	result, err := r.db.Exec("UPDATE gifts SET status = ?, claimed_at = ?, updated_at = ? WHERE id = ? AND status = ?",
		models.GiftClaimed, at, at, id, models.GiftRedeemed)
	if err != nil {
		return fmt.Errorf("failed to claim gift: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrGiftChanged
	}
	return nil
}
