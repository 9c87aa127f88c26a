package leaderboard

import (
	"context"
	"time"

	"typingclash/internal/repository"
)

// EarnedSource sums ledger earnings per user
type EarnedSource interface {
	EarnedSince(from time.Time, limit int) ([]repository.UserPoints, error)
}

// DBBoard ranks straight from the points ledger. Add is a no-op since the
// ledger already holds every earning.
type DBBoard struct {
	source EarnedSource
}

// NewDBBoard creates a ledger-backed board
func NewDBBoard(source EarnedSource) *DBBoard {
	return &DBBoard{source: source}
}

func (b *DBBoard) Add(context.Context, int64, string, int, time.Time) error {
	return nil
}

func (b *DBBoard) Top(_ context.Context, at time.Time, limit int) ([]Entry, error) {
	rows, err := b.source.EarnedSince(WeekStart(at), limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		name := r.Nickname
		if name == "" {
			name = r.AccountName
		}
		entries = append(entries, Entry{UserID: r.UserID, Name: name, Points: r.Points})
	}
	return rank(entries), nil
}
