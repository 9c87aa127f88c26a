package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"typingclash/internal/database"
	"typingclash/internal/models"
)

// ErrDuplicate reports a unique constraint violation, such as a taken
// account name or invite code.
var ErrDuplicate = errors.New("duplicate value")

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, COALESCE(email, ''), password_hash, account_name, nickname, role,
	membership_tier, membership_expires_at, level, sound_enabled, avatar,
	COALESCE(invite_code, ''), COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''),
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var expires sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.AccountName,
		&user.Nickname,
		&user.Role,
		&user.MembershipTier,
		&expires,
		&user.Level,
		&user.SoundEnabled,
		&user.Avatar,
		&user.InviteCode,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		user.MembershipExpiresAt = &t
	}
	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// CreateUser inserts the user together with a fresh progress row. ID and
// timestamps are set on u. A taken account name, email or invite code
// returns ErrDuplicate.
func (r *UserRepository) CreateUser(u *models.User, today string) error {
	now := time.Now().UTC()
	err := r.db.WithTx(func(tx *database.Tx) error {
		id, err := tx.ExecReturningID(`
			INSERT INTO users (email, password_hash, account_name, nickname, role, membership_tier,
				membership_expires_at, level, sound_enabled, avatar, invite_code, oauth_provider, oauth_subject,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullString(u.Email), u.PasswordHash, u.AccountName, u.Nickname, u.Role, u.MembershipTier,
			nullTime(u.MembershipExpiresAt), u.Level, u.SoundEnabled, u.Avatar, nullString(u.InviteCode),
			nullString(u.OAuthProvider), nullString(u.OAuthSubject), now, now)
		if err != nil {
			return err
		}
		u.ID = id

		_, err = tx.Exec("INSERT INTO progress (user_id, today_date, updated_at) VALUES (?, ?, ?)", id, today, now)
		return err
	})
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *UserRepository) getUserWhere(where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	return r.getUserWhere("id = ?", id)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.getUserWhere("email = ?", email)
}

// GetUserByAccountName retrieves a user by login account name
func (r *UserRepository) GetUserByAccountName(accountName string) (*models.User, error) {
	return r.getUserWhere("account_name = ?", accountName)
}

// GetUserByInviteCode retrieves the student owning an invite code
func (r *UserRepository) GetUserByInviteCode(code string) (*models.User, error) {
	return r.getUserWhere("invite_code = ?", code)
}

// GetUserByOAuth retrieves a user linked to an external identity
func (r *UserRepository) GetUserByOAuth(provider, subject string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE oauth_provider = ? AND oauth_subject = ?"
	user, err := scanUser(r.db.QueryRow(query, provider, subject))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by ID
func (r *UserRepository) ListUsers() ([]models.User, error) {
	rows, err := r.db.Query("SELECT " + userColumns + " FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateProfile stores the user-editable profile fields
func (r *UserRepository) UpdateProfile(id int64, nickname string, soundEnabled bool, avatar string) error {
	query := "UPDATE users SET nickname = ?, sound_enabled = ?, avatar = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.Exec(query, nickname, soundEnabled, avatar, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateMembership sets the tier and its expiry (nil for none)
func (r *UserRepository) UpdateMembership(id int64, tier models.Tier, expiresAt *time.Time) error {
	query := "UPDATE users SET membership_tier = ?, membership_expires_at = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.Exec(query, tier, nullTime(expiresAt), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

// UpdateLevel sets the user's level
func (r *UserRepository) UpdateLevel(id int64, level int) error {
	query := "UPDATE users SET level = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.Exec(query, level, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update level: %w", err)
	}
	return nil
}

// UpdateRole changes the user's role. Students keep their invite code,
// parents lose it.
func (r *UserRepository) UpdateRole(id int64, role models.Role, inviteCode string) error {
	query := "UPDATE users SET role = ?, invite_code = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.Exec(query, role, nullString(inviteCode), time.Now().UTC(), id); err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// LinkOAuth attaches an external identity to an existing user
func (r *UserRepository) LinkOAuth(id int64, provider, subject string) error {
	query := "UPDATE users SET oauth_provider = ?, oauth_subject = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.Exec(query, provider, subject, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to link oauth identity: %w", err)
	}
	return nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	now := time.Now().UTC()
	query := "INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"
	if _, err := r.db.Exec(query, sessionID, userID, expiresAt.UTC(), now); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &models.Session{ID: sessionID, UserID: userID, ExpiresAt: expiresAt, CreatedAt: now}, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(sessionID string) (*models.Session, error) {
	query := "SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?"
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now and
// returns how many were removed.
func (r *UserRepository) DeleteExpiredSessions(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
