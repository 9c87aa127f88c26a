package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"typingclash/internal/database"
	"typingclash/internal/logger"
)

const backupVersion = "2.0"

// ErrInvalidBackup is returned when backup rows break a data invariant.
// Nothing is imported in that case.
var ErrInvalidBackup = errors.New("invalid backup data")

// backupTable describes one table in a backup. Tables are listed in
// dependency order.
type backupTable struct {
	Name     string
	Columns  []string
	Times    []string
	OrderBy  string
	SerialID bool
	// Check rejects rows that would break an invariant of the table
	Check func(row map[string]interface{}) error
}

var backupTables = []backupTable{
	{
		Name: "users",
		Columns: []string{"id", "email", "password_hash", "account_name", "nickname", "role", "membership_tier",
			"membership_expires_at", "level", "sound_enabled", "avatar", "invite_code", "oauth_provider",
			"oauth_subject", "created_at", "updated_at"},
		Times:    []string{"membership_expires_at", "created_at", "updated_at"},
		OrderBy:  "id",
		SerialID: true,
	},
	{
		Name: "progress",
		Columns: []string{"user_id", "current_day", "consecutive_days", "last_completed_date", "total_points",
			"used_points", "today_date", "today_started_at", "today_total_time_ms", "today_completed",
			"today_total_chars", "today_correct_chars", "updated_at"},
		Times:   []string{"today_started_at", "updated_at"},
		OrderBy: "user_id",
		Check: func(row map[string]interface{}) error {
			if err := nonNegative(row, "current_day", "consecutive_days", "total_points", "used_points",
				"today_total_time_ms", "today_total_chars", "today_correct_chars"); err != nil {
				return err
			}
			if err := notAbove(row, "used_points", "total_points"); err != nil {
				return err
			}
			return notAbove(row, "today_correct_chars", "today_total_chars")
		},
	},
	{
		Name: "daily_records",
		Columns: []string{"id", "user_id", "date", "day", "total_chars", "correct_chars", "total_time_ms",
			"earned_points", "accuracy", "avg_response_time_ms", "created_at"},
		Times:    []string{"created_at"},
		OrderBy:  "id",
		SerialID: true,
		Check: func(row map[string]interface{}) error {
			if err := nonNegative(row, "total_chars", "correct_chars", "total_time_ms", "earned_points"); err != nil {
				return err
			}
			return notAbove(row, "correct_chars", "total_chars")
		},
	},
	{
		Name: "letter_stats",
		Columns: []string{"user_id", "letter", "total_attempts", "correct_attempts", "total_response_time_ms",
			"practice_attempts", "practice_correct", "practice_response_time_ms", "updated_at"},
		Times:   []string{"updated_at"},
		OrderBy: "user_id, letter",
		Check: func(row map[string]interface{}) error {
			if err := nonNegative(row, "total_attempts", "correct_attempts", "total_response_time_ms",
				"practice_attempts", "practice_correct", "practice_response_time_ms"); err != nil {
				return err
			}
			if err := notAbove(row, "correct_attempts", "total_attempts"); err != nil {
				return err
			}
			return notAbove(row, "practice_correct", "practice_attempts")
		},
	},
	{
		Name:    "user_achievements",
		Columns: []string{"user_id", "achievement_id", "unlocked_at"},
		Times:   []string{"unlocked_at"},
		OrderBy: "user_id, achievement_id",
	},
	{
		Name: "relations",
		Columns: []string{"id", "parent_id", "student_id", "practice_per_slot_minutes", "play_per_slot_minutes",
			"max_daily_play_minutes", "created_at"},
		Times:    []string{"created_at"},
		OrderBy:  "id",
		SerialID: true,
	},
	{
		Name: "gifts",
		Columns: []string{"id", "parent_id", "student_id", "name", "description", "cost", "status", "redeemed_at",
			"claimed_at", "created_at", "updated_at"},
		Times:    []string{"redeemed_at", "claimed_at", "created_at", "updated_at"},
		OrderBy:  "id",
		SerialID: true,
	},
	{
		Name:     "points_ledger",
		Columns:  []string{"id", "user_id", "amount", "reason", "idempotency_key", "created_at"},
		Times:    []string{"created_at"},
		OrderBy:  "id",
		SerialID: true,
	},
	{
		Name:    "game_types",
		Columns: []string{"id", "name", "description", "required_membership", "required_level", "is_active", "sort_order"},
		OrderBy: "id",
	},
	{
		Name:     "game_records",
		Columns:  []string{"id", "user_id", "game_type", "date", "total_time_ms", "completed", "updated_at"},
		Times:    []string{"updated_at"},
		OrderBy:  "id",
		SerialID: true,
	},
	{
		Name:    "settings",
		Columns: []string{"setting_key", "setting_value", "updated_at"},
		Times:   []string{"updated_at"},
		OrderBy: "setting_key",
	},
}

// BackupData is the complete database backup structure
type BackupData struct {
	ID           string                              `json:"id"`
	Version      string                              `json:"version"`
	ExportedAt   time.Time                           `json:"exported_at"`
	DatabaseType string                              `json:"database_type"`
	Tables       map[string][]map[string]interface{} `json:"tables"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{db: db, log: log}
}

// Export writes a complete backup of the database to outputPath
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}
	s.log.Info("database exported", "path", outputPath)
	return nil
}

// ExportToWriter writes the backup as indented JSON to w
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		ID:           uuid.NewString(),
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Tables:       make(map[string][]map[string]interface{}, len(backupTables)),
	}
	for _, t := range backupTables {
		rows, err := s.exportTable(t)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", t.Name, err)
		}
		backup.Tables[t.Name] = rows
		s.log.Debug("table exported", "table", t.Name, "rows", len(rows))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

func (s *BackupService) exportTable(t backupTable) ([]map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.Columns, ", "), t.Name, t.OrderBy)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(t.Columns))
		ptrs := make([]interface{}, len(t.Columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(t.Columns))
		for i, col := range t.Columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			case time.Time:
				row[col] = v.UTC()
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Import restores a backup file into the database
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(file)
}

// ImportFromReader restores a backup read from r in one transaction
func (s *BackupService) ImportFromReader(r io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if !strings.HasPrefix(backup.Version, "2.") {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	s.log.Info("importing backup", "id", backup.ID, "version", backup.Version, "exported_at", backup.ExportedAt)
	if err := checkBackup(&backup); err != nil {
		return err
	}

	err := s.db.WithTx(func(tx *database.Tx) error {
		for _, t := range backupTables {
			rows := backup.Tables[t.Name]
			if err := s.importTable(tx, t, rows); err != nil {
				return fmt.Errorf("failed to import %s: %w", t.Name, err)
			}
			s.log.Debug("table imported", "table", t.Name, "rows", len(rows))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.resetSequences()
}

func (s *BackupService) importTable(tx *database.Tx, t backupTable, rows []map[string]interface{}) error {
	// catalog rows may already be seeded by migrations
	var query string
	if t.Name == "game_types" {
		query = s.db.Dialect.UpsertQuery(t.Name, []string{"id"}, t.Columns)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(t.Columns, ", "), placeholders)
	}

	times := make(map[string]bool, len(t.Times))
	for _, c := range t.Times {
		times[c] = true
	}
	for i, row := range rows {
		args := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			v, err := importValue(row[col], times[col])
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", i, col, err)
			}
			args[j] = v
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// checkBackup validates every row before anything is written
func checkBackup(backup *BackupData) error {
	for _, t := range backupTables {
		if t.Check == nil {
			continue
		}
		for i, row := range backup.Tables[t.Name] {
			if err := t.Check(row); err != nil {
				return fmt.Errorf("%w: %s row %d: %v", ErrInvalidBackup, t.Name, i, err)
			}
		}
	}
	return nil
}

// rowNumber reads a numeric column; a missing or null value reads as 0
func rowNumber(row map[string]interface{}, col string) (float64, error) {
	switch v := row[col].(type) {
	case nil:
		return 0, nil
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%s is not a number", col)
	}
}

func nonNegative(row map[string]interface{}, cols ...string) error {
	for _, col := range cols {
		n, err := rowNumber(row, col)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%s must not be negative", col)
		}
	}
	return nil
}

// notAbove checks row[part] <= row[whole]
func notAbove(row map[string]interface{}, part, whole string) error {
	p, err := rowNumber(row, part)
	if err != nil {
		return err
	}
	w, err := rowNumber(row, whole)
	if err != nil {
		return err
	}
	if p > w {
		return fmt.Errorf("%s must not exceed %s", part, whole)
	}
	return nil
}

func importValue(v interface{}, isTime bool) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		return val.Float64()
	case string:
		if isTime {
			return time.Parse(time.RFC3339Nano, val)
		}
		return val, nil
	default:
		return val, nil
	}
}

// resetSequences moves postgres serial sequences past the imported ids
func (s *BackupService) resetSequences() error {
	if s.db.Dialect.DriverName() != "postgres" {
		return nil
	}
	for _, t := range backupTables {
		if !t.SerialID {
			continue
		}
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s", t.Name, t.Name)
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", t.Name, err)
		}
	}
	return nil
}

// Clear deletes every backed-up row, children first. Sessions go too.
func (s *BackupService) Clear() error {
	return s.db.WithTx(func(tx *database.Tx) error {
		if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
			return fmt.Errorf("failed to clear sessions: %w", err)
		}
		for i := len(backupTables) - 1; i >= 0; i-- {
			name := backupTables[i].Name
			if _, err := tx.Exec("DELETE FROM " + name); err != nil {
				return fmt.Errorf("failed to clear %s: %w", name, err)
			}
		}
		return nil
	})
}
