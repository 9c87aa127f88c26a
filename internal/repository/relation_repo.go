package repository

import (
	"database/sql"
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// RelationRepository handles parent-student bindings
type RelationRepository struct {
	db *database.DB
}

// NewRelationRepository creates a new relation repository
func NewRelationRepository(db *database.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

const relationColumns = `id, parent_id, student_id, practice_per_slot_minutes, play_per_slot_minutes,
	max_daily_play_minutes, created_at`

func scanRelation(row rowScanner) (*models.Relation, error) {
	rel := &models.Relation{}
	var maxDaily sql.NullInt64
	err := row.Scan(
		&rel.ID,
		&rel.ParentID,
		&rel.StudentID,
		&rel.PracticePerSlotMinutes,
		&rel.PlayPerSlotMinutes,
		&maxDaily,
		&rel.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if maxDaily.Valid {
		v := int(maxDaily.Int64)
		rel.MaxDailyPlayMinutes = &v
	}
	return rel, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// Create binds studentID to parentID with the default ratio. A student
// already bound returns ErrDuplicate.
func (r *RelationRepository) Create(parentID, studentID int64) (*models.Relation, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO relations (parent_id, student_id, practice_per_slot_minutes, play_per_slot_minutes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, parentID, studentID,
		models.DefaultPracticePerSlotMinutes, models.DefaultPlayPerSlotMinutes, now)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create relation: %w", err)
	}
	return &models.Relation{
		ID:                     id,
		ParentID:               parentID,
		StudentID:              studentID,
		PracticePerSlotMinutes: models.DefaultPracticePerSlotMinutes,
		PlayPerSlotMinutes:     models.DefaultPlayPerSlotMinutes,
		CreatedAt:              now,
	}, nil
}

// GetByStudent returns the student's relation, or nil when unbound
func (r *RelationRepository) GetByStudent(studentID int64) (*models.Relation, error) {
	rel, err := scanRelation(r.db.QueryRow("SELECT "+relationColumns+" FROM relations WHERE student_id = ?", studentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relation: %w", err)
	}
	return rel, nil
}

// Get returns the relation binding parentID to studentID, or nil
func (r *RelationRepository) Get(parentID, studentID int64) (*models.Relation, error) {
	query := "SELECT " + relationColumns + " FROM relations WHERE parent_id = ? AND student_id = ?"
	rel, err := scanRelation(r.db.QueryRow(query, parentID, studentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relation: %w", err)
	}
	return rel, nil
}

// ListStudents returns a parent's students with their progress summary
func (r *RelationRepository) ListStudents(parentID int64) ([]models.StudentSummary, error) {
	query := `
		SELECT r.id, r.parent_id, r.student_id, r.practice_per_slot_minutes, r.play_per_slot_minutes,
			r.max_daily_play_minutes, r.created_at,
			u.account_name, u.nickname, u.avatar,
			COALESCE(p.current_day, 1), COALESCE(p.total_points, 0), COALESCE(p.used_points, 0),
			COALESCE(p.consecutive_days, 0)
		FROM relations r
		JOIN users u ON u.id = r.student_id
		LEFT JOIN progress p ON p.user_id = r.student_id
		WHERE r.parent_id = ?
		ORDER BY r.created_at, r.id
	`
	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var out []models.StudentSummary
	for rows.Next() {
		var (
			s        models.StudentSummary
			maxDaily sql.NullInt64
		)
		if err := rows.Scan(
			&s.Relation.ID,
			&s.Relation.ParentID,
			&s.Relation.StudentID,
			&s.Relation.PracticePerSlotMinutes,
			&s.Relation.PlayPerSlotMinutes,
			&maxDaily,
			&s.Relation.CreatedAt,
			&s.AccountName,
			&s.Nickname,
			&s.Avatar,
			&s.CurrentDay,
			&s.TotalPoints,
			&s.UsedPoints,
			&s.Streak,
		); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		if maxDaily.Valid {
			v := int(maxDaily.Int64)
			s.Relation.MaxDailyPlayMinutes = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListParents returns the users supervising the student
func (r *RelationRepository) ListParents(studentID int64) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id IN (SELECT parent_id FROM relations WHERE student_id = ?)"
	rows, err := r.db.Query(query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parents: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parent: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateRatio stores the practice-to-play ratio for a relation
func (r *RelationRepository) UpdateRatio(id int64, practicePerSlot, playPerSlot int, maxDaily *int) error {
	query := `
		UPDATE relations SET practice_per_slot_minutes = ?, play_per_slot_minutes = ?, max_daily_play_minutes = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, practicePerSlot, playPerSlot, nullInt(maxDaily), id); err != nil {
		return fmt.Errorf("failed to update ratio: %w", err)
	}
	return nil
}

// Delete removes the binding between parentID and studentID and reports
// whether one existed.
func (r *RelationRepository) Delete(parentID, studentID int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM relations WHERE parent_id = ? AND student_id = ?", parentID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete relation: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
