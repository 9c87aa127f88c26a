package models

import "time"

// GameType is an entry of the reward game catalog
type GameType struct {
	ID                 string
	Name               string
	Description        string
	RequiredMembership Tier
	RequiredLevel      int
	IsActive           bool
	SortOrder          int
}

// AvailableTo reports whether a user with tier and level may play the game.
// Premium members see every active game.
func (g *GameType) AvailableTo(tier Tier, level int) bool {
	if !g.IsActive {
		return false
	}
	if tier == TierPremium {
		return true
	}
	return g.RequiredMembership == TierFree && level >= g.RequiredLevel
}

// GameRecord accumulates play time per user, game and date
type GameRecord struct {
	ID          int64
	UserID      int64
	GameType    string
	Date        string
	TotalTimeMs int64
	Completed   bool
	UpdatedAt   time.Time
}
