package models

import "time"

// GiftStatus tracks a gift through redemption
type GiftStatus string

const (
	GiftActive   GiftStatus = "active"
	GiftRedeemed GiftStatus = "redeemed"
	GiftClaimed  GiftStatus = "claimed"
)

// Gift is a reward a parent offers a student for points
type Gift struct {
	ID          int64
	ParentID    int64
	StudentID   int64
	Name        string
	Description string
	Cost        int
	Status      GiftStatus
	RedeemedAt  *time.Time
	ClaimedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PointsEntry is one row of the append-only points ledger. Amount is
// positive for earnings and negative for spending.
type PointsEntry struct {
	ID             int64
	UserID         int64
	Amount         int
	Reason         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// Ledger reasons
const (
	ReasonDailyCompletion = "daily_completion"
	ReasonGiftRedemption  = "gift_redemption"
	ReasonParentAward     = "parent_award"
	ReasonParentDeduct    = "parent_deduct"
	ReasonLegacyImport    = "legacy_import"
)
