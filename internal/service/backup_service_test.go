package service

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typingclash/internal/logger"
	"typingclash/internal/stats"
)

func tableCounts(t *testing.T, env *testEnv) map[string]int {
	t.Helper()
	counts := make(map[string]int, len(backupTables))
	for _, tbl := range backupTables {
		var n int
		require.NoError(t, env.db.QueryRow("SELECT COUNT(*) FROM "+tbl.Name).Scan(&n))
		counts[tbl.Name] = n
	}
	return counts
}

func TestBackupRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	mum, kid := env.bind(t, "mum", "kid")
	env.completeDay(t, kid)
	_, err := env.gift.Create(mum, kid.ID, GiftInput{Name: "Kite", Cost: 20})
	require.NoError(t, err)
	require.NoError(t, env.settings.SetSetting("motd", "hello"))

	before := tableCounts(t, env)
	require.Equal(t, 2, before["users"])
	require.Equal(t, 1, before["points_ledger"])

	backups := NewBackupService(env.db, logger.NewNop())
	var buf bytes.Buffer
	require.NoError(t, backups.ExportToWriter(&buf))

	var decoded BackupData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, backupVersion, decoded.Version)
	assert.Len(t, decoded.Tables["users"], 2)

	require.NoError(t, backups.Clear())
	assert.Zero(t, tableCounts(t, env)["users"])

	require.NoError(t, backups.ImportFromReader(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, before, tableCounts(t, env))

	_, user, err := env.auth.Login("mum", "password123")
	require.NoError(t, err)
	assert.Equal(t, mum.ID, user.ID)

	p, err := env.progress.Get(kid.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentDay)
}

func TestBackupFile(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "kid", "student")
	backups := NewBackupService(env.db, logger.NewNop())

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, backups.Export(path))
	require.NoError(t, backups.Clear())
	require.NoError(t, backups.Import(path))

	ok, err := env.auth.AccountNameAvailable("kid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackupRejectsUnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	backups := NewBackupService(env.db, logger.NewNop())
	err := backups.ImportFromReader(strings.NewReader(`{"version": "1.0", "tables": {}}`))
	assert.Error(t, err)
}

func TestBackupRejectsInconsistentRows(t *testing.T) {
	env := newTestEnv(t)
	kid := env.signup(t, "kid", "student")
	env.completeDay(t, kid)
	require.NoError(t, env.exercises.UpsertLetterStats(kid.ID, map[rune]stats.LetterStat{
		'F': {TotalAttempts: 10, CorrectAttempts: 9, TotalResponseTimeMs: 3000},
	}))
	backups := NewBackupService(env.db, logger.NewNop())

	var buf bytes.Buffer
	require.NoError(t, backups.ExportToWriter(&buf))
	good := buf.String()

	tests := []struct {
		name   string
		table  string
		column string
		value  interface{}
	}{
		{"letter correct above attempts", "letter_stats", "correct_attempts", 1 << 20},
		{"negative response time", "letter_stats", "total_response_time_ms", -900},
		{"negative streak", "progress", "consecutive_days", -4},
		{"overspent points", "progress", "used_points", 1 << 20},
		{"record correct above total", "daily_records", "correct_chars", 1 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data BackupData
			require.NoError(t, json.Unmarshal([]byte(good), &data))
			require.NotEmpty(t, data.Tables[tt.table])
			data.Tables[tt.table][0][tt.column] = tt.value
			raw, err := json.Marshal(data)
			require.NoError(t, err)

			require.NoError(t, backups.Clear())
			err = backups.ImportFromReader(bytes.NewReader(raw))
			assert.ErrorIs(t, err, ErrInvalidBackup)
			assert.Zero(t, tableCounts(t, env)["users"], "rejected backup must not write anything")
		})
	}

	require.NoError(t, backups.ImportFromReader(strings.NewReader(good)))
	assert.Equal(t, 1, tableCounts(t, env)["users"])
}
