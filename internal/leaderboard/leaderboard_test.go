package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"typingclash/internal/repository"
)

func TestWeekKey(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{at: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), want: "2026-W10"},
		{at: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), want: "2026-W53"},
		{at: time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), want: "2026-W01"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := WeekKey(tt.at); got != tt.want {
				t.Errorf("WeekKey(%v) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{name: "sunday", at: time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC), want: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{name: "monday", at: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), want: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{name: "wednesday", at: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), want: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.at); !got.Equal(tt.want) {
				t.Errorf("WeekStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeSource struct {
	from time.Time
	rows []repository.UserPoints
}

func (f *fakeSource) EarnedSince(from time.Time, limit int) ([]repository.UserPoints, error) {
	f.from = from
	return f.rows, nil
}

func TestDBBoardTop(t *testing.T) {
	src := &fakeSource{rows: []repository.UserPoints{
		{UserID: 2, Nickname: "Ada", Points: 400},
		{UserID: 1, AccountName: "bob7", Points: 250},
	}}
	board := NewDBBoard(src)
	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	entries, err := board.Top(context.Background(), at, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !src.from.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("queried from %v", src.from)
	}
	if len(entries) != 2 || entries[0].Rank != 1 || entries[0].Name != "Ada" || entries[1].Name != "bob7" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRedisBoard(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	board, err := NewRedisBoard(ctx, mr.Addr(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer board.Close()

	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	for _, add := range []struct {
		id     int64
		name   string
		points int
	}{{1, "Ada", 100}, {2, "Bob", 300}, {1, "Ada", 250}, {3, "Cy", 0}} {
		if err := board.Add(ctx, add.id, add.name, add.points, at); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := board.Top(ctx, at, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].UserID != 1 || entries[0].Points != 350 || entries[0].Rank != 1 ||
		entries[1].Name != "Bob" || entries[1].Rank != 2 {
		t.Errorf("entries = %+v", entries)
	}
	if ttl := mr.TTL(weekSetKey(at)); ttl != keepFor {
		t.Errorf("TTL = %v, want %v", ttl, keepFor)
	}

	next, err := board.Top(ctx, at.AddDate(0, 0, 7), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(next) != 0 {
		t.Errorf("next week = %+v, want empty", next)
	}
}

func TestRedisBoardUnreachable(t *testing.T) {
	if _, err := NewRedisBoard(context.Background(), "127.0.0.1:1", "", 0); err == nil {
		t.Error("NewRedisBoard() succeeded against a closed server")
	}
}
