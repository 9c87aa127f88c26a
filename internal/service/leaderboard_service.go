package service

import (
	"context"

	"typingclash/internal/clock"
	"typingclash/internal/leaderboard"
	"typingclash/internal/logger"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// LeaderboardService ranks users by the points they earned this week
type LeaderboardService struct {
	board    leaderboard.Board
	fallback leaderboard.Board
	clock    clock.Clock
	log      *logger.Logger
}

// NewLeaderboardService creates a new leaderboard service. fallback is
// read when board fails and may be nil.
func NewLeaderboardService(board, fallback leaderboard.Board, clk clock.Clock, log *logger.Logger) *LeaderboardService {
	return &LeaderboardService{board: board, fallback: fallback, clock: clk, log: log}
}

// Weekly returns the current week's top entries
func (s *LeaderboardService) Weekly(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	limit = min(limit, maxLeaderboardSize)

	now := s.clock.Now()
	entries, err := s.board.Top(ctx, now, limit)
	if err != nil && s.fallback != nil {
		s.log.Warn("leaderboard unavailable, reading from database", "error", err)
		entries, err = s.fallback.Top(ctx, now, limit)
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	return entries, nil
}
