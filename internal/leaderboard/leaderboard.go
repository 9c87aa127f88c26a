// Package leaderboard ranks users by the points they earned this week.
package leaderboard

import (
	"context"
	"fmt"
	"time"
)

// Entry is one ranked user
type Entry struct {
	Rank   int    `json:"rank"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Board records earned points and ranks users per ISO week
type Board interface {
	Add(ctx context.Context, userID int64, name string, points int, at time.Time) error
	Top(ctx context.Context, at time.Time, limit int) ([]Entry, error)
}

// WeekKey names the ISO week containing t, e.g. "2026-W09"
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekStart returns Monday 00:00 of the ISO week containing t, in t's location
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func rank(entries []Entry) []Entry {
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
