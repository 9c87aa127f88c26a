package repository

import (
	"database/sql"
	"fmt"
	"time"

	"typingclash/internal/database"
)

// Setting keys
const (
	SettingSignupClosed = "signup_closed"
)

// SettingsRepository stores runtime switches as key/value pairs
type SettingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns the value for key and whether it is set
func (r *SettingsRepository) GetSetting(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT setting_value FROM settings WHERE setting_key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting: %w", err)
	}
	return value, true, nil
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(key, value string) error {
	query := r.db.Dialect.UpsertQuery("settings", []string{"setting_key"}, []string{"setting_key", "setting_value", "updated_at"})
	if _, err := r.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

// IsSignupClosed reports whether self-service signup is switched off. The
// stored setting wins over fallback.
func (r *SettingsRepository) IsSignupClosed(fallback bool) bool {
	value, ok, err := r.GetSetting(SettingSignupClosed)
	if err != nil || !ok {
		return fallback
	}
	return value == "true"
}

// SetSignupClosed enables or disables self-service signup
func (r *SettingsRepository) SetSignupClosed(closed bool) error {
	value := "false"
	if closed {
		value = "true"
	}
	return r.SetSetting(SettingSignupClosed, value)
}
