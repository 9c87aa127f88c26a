package database

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openMigrated(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	db := openMigrated(t)

	tables := []string{"users", "sessions", "progress", "daily_records", "letter_stats",
		"user_achievements", "relations", "gifts", "points_ledger", "game_types", "game_records", "settings"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	applied, err := db.RunMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("migrations re-applied: %v", applied)
	}
}

func TestWithTx(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	db := openMigrated(t)

	err := db.WithTx(func(tx *Tx) error {
		_, err := tx.ExecReturningID("INSERT INTO users (account_name, role) VALUES (?, ?)", "committed", "student")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTx(func(tx *Tx) error {
		if _, err := tx.Exec("INSERT INTO users (account_name, role) VALUES (?, ?)", "rolledback", "student"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after rollback, got %d", count)
	}
}

func TestUpsertAndUniqueViolation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	db := openMigrated(t)

	id, err := db.ExecReturningID("INSERT INTO users (account_name, role) VALUES (?, ?)", "kid", "student")
	if err != nil {
		t.Fatal(err)
	}

	upsert := db.Dialect.UpsertQuery("letter_stats", []string{"user_id", "letter"}, []string{"user_id", "letter", "total_attempts"})
	for _, n := range []int{3, 7} {
		if _, err := db.Exec(upsert, id, "A", n); err != nil {
			t.Fatalf("upsert error = %v", err)
		}
	}
	var attempts int
	if err := db.QueryRow("SELECT total_attempts FROM letter_stats WHERE user_id = ? AND letter = ?", id, "A").Scan(&attempts); err != nil {
		t.Fatal(err)
	}
	if attempts != 7 {
		t.Errorf("total_attempts = %d, want 7", attempts)
	}

	_, err = db.Exec("INSERT INTO users (account_name, role) VALUES (?, ?)", "kid", "student")
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("duplicate account name error = %v, want unique violation", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	db := openMigrated(t)

	if _, err := db.Exec("INSERT INTO users (account_name, role) VALUES (?, ?)", "concurrent", "student"); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var role string
			if err := db.QueryRow("SELECT role FROM users WHERE account_name = ?", "concurrent").Scan(&role); err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			if role != "student" {
				t.Errorf("Expected role 'student', got '%s'", role)
			}
		}()
	}
	wg.Wait()
}
