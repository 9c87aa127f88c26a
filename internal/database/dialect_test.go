package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestDialectBasics(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		driver     string
		lastInsert bool
		migrations string
	}{
		{name: "sqlite", dialect: NewSQLiteDialect(), driver: "sqlite3", lastInsert: true, migrations: "sqlite"},
		{name: "postgres", dialect: NewPostgresDialect(), driver: "postgres", lastInsert: false, migrations: "postgres"},
		{name: "mysql", dialect: NewMySQLDialect(), driver: "mysql", lastInsert: true, migrations: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.SupportsLastInsertId(); got != tt.lastInsert {
				t.Errorf("SupportsLastInsertId() = %v, want %v", got, tt.lastInsert)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.migrations {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.migrations)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (account_name, email) VALUES (?, ?)",
			expected: "INSERT INTO users (account_name, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET nickname = ? WHERE id = ?",
			expected: "UPDATE users SET nickname = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.dialect.RewriteQuery(tt.query); result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestUpsertQuery(t *testing.T) {
	keys := []string{"user_id", "letter"}
	cols := []string{"user_id", "letter", "total_attempts"}

	tests := []struct {
		name     string
		dialect  Dialect
		expected string
	}{
		{
			name:     "sqlite",
			dialect:  NewSQLiteDialect(),
			expected: "INSERT INTO letter_stats (user_id, letter, total_attempts) VALUES (?, ?, ?) ON CONFLICT (user_id, letter) DO UPDATE SET total_attempts = excluded.total_attempts",
		},
		{
			name:     "postgres",
			dialect:  NewPostgresDialect(),
			expected: "INSERT INTO letter_stats (user_id, letter, total_attempts) VALUES (?, ?, ?) ON CONFLICT (user_id, letter) DO UPDATE SET total_attempts = excluded.total_attempts",
		},
		{
			name:     "mysql",
			dialect:  NewMySQLDialect(),
			expected: "INSERT INTO letter_stats (user_id, letter, total_attempts) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE total_attempts = VALUES(total_attempts)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.UpsertQuery("letter_stats", keys, cols); got != tt.expected {
				t.Errorf("UpsertQuery() =\n%s\nwant\n%s", got, tt.expected)
			}
		})
	}
}

func TestInsertIgnoreQuery(t *testing.T) {
	cols := []string{"user_id", "achievement_id"}
	tests := []struct {
		dialect Dialect
		prefix  string
		suffix  string
	}{
		{dialect: NewSQLiteDialect(), prefix: "INSERT OR IGNORE INTO user_achievements"},
		{dialect: NewPostgresDialect(), prefix: "INSERT INTO user_achievements", suffix: "ON CONFLICT DO NOTHING"},
		{dialect: NewMySQLDialect(), prefix: "INSERT IGNORE INTO user_achievements"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.DriverName(), func(t *testing.T) {
			got := tt.dialect.InsertIgnoreQuery("user_achievements", cols)
			if !strings.HasPrefix(got, tt.prefix) || !strings.HasSuffix(got, tt.suffix) {
				t.Errorf("InsertIgnoreQuery() = %q", got)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{name: "sqlite unique", dialect: NewSQLiteDialect(), err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, want: true},
		{name: "sqlite other", dialect: NewSQLiteDialect(), err: sqlite3.Error{Code: sqlite3.ErrBusy}, want: false},
		{name: "postgres unique", dialect: NewPostgresDialect(), err: &pq.Error{Code: "23505"}, want: true},
		{name: "postgres fk", dialect: NewPostgresDialect(), err: &pq.Error{Code: "23503"}, want: false},
		{name: "mysql duplicate", dialect: NewMySQLDialect(), err: &mysql.MySQLError{Number: 1062}, want: true},
		{name: "plain error", dialect: NewMySQLDialect(), err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header
CREATE TABLE a (
    id INTEGER
);

INSERT INTO a (id) VALUES
    (1),
    (2);
-- trailing comment
`
	stmts := SplitStatements(content)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") || strings.HasSuffix(stmts[0], ";") {
		t.Errorf("first statement = %q", stmts[0])
	}
	if !strings.Contains(stmts[1], "(2)") {
		t.Errorf("second statement = %q", stmts[1])
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := NewSQLiteDialect().DSN(DialectConfig{Path: "/tmp/x.db"})
	if !strings.HasPrefix(dsn, "file:/tmp/x.db?") || !strings.Contains(dsn, "_foreign_keys=on") {
		t.Errorf("DSN() = %q", dsn)
	}
}

func TestMySQLDSNParsesTime(t *testing.T) {
	dsn := NewMySQLDialect().DSN(DialectConfig{URL: "user:pw@tcp(localhost:3306)/typing"})
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN() = %q", dsn)
	}
}
