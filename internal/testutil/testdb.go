// Package testutil provides fixtures shared by repository and service tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"typingclash/internal/database"
)

// MigrationsPath returns the repository's migrations directory
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// NewTestDB opens a migrated SQLite database in a temporary directory. It is
// closed when the test ends.
func NewTestDB(t testing.TB) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Initialize(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(path)
	})

	if _, err := db.RunMigrations(MigrationsPath()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
