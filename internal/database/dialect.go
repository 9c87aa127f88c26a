package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertQuery inserts cols into table, updating every non-key column
	// when a row with the same keys exists.
	UpsertQuery(table string, keys, cols []string) string

	// InsertIgnoreQuery inserts cols into table and silently skips rows
	// that collide with a unique key.
	InsertIgnoreQuery(table string, cols []string) string

	// IsUniqueViolation reports whether err is a unique constraint failure
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

func insertPrefix(verb, table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return verb + " " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

// nonKeys returns cols minus keys, preserving order
func nonKeys(keys, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		isKey := false
		for _, k := range keys {
			if c == k {
				isKey = true
				break
			}
		}
		if !isKey {
			out = append(out, c)
		}
	}
	return out
}

// onConflictUpsert is shared by SQLite and PostgreSQL, which both accept
// ON CONFLICT ... DO UPDATE with the excluded pseudo-table.
func onConflictUpsert(table string, keys, cols []string) string {
	q := insertPrefix("INSERT INTO", table, cols) + " ON CONFLICT (" + strings.Join(keys, ", ") + ")"
	updates := nonKeys(keys, cols)
	if len(updates) == 0 {
		return q + " DO NOTHING"
	}
	sets := make([]string, len(updates))
	for i, c := range updates {
		sets[i] = c + " = excluded." + c
	}
	return q + " DO UPDATE SET " + strings.Join(sets, ", ")
}
