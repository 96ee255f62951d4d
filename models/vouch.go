package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxVouchPoints is the most points one user can put behind a friend
const MaxVouchPoints = 5

// VouchStats holds a user's vouch budget
type VouchStats struct {
	UserID          uuid.UUID       `db:"user_id" json:"userId"`
	Budget          decimal.Decimal `db:"budget" json:"budget"`
	BaseBudget      decimal.Decimal `db:"base_budget" json:"baseBudget"`
	PointsPerFriend decimal.Decimal `db:"points_per_friend" json:"pointsPerFriend"`
	TotalAllocated  decimal.Decimal `db:"total_allocated" json:"totalAllocated"`
	ReputationScore decimal.Decimal `db:"-" json:"reputationScore"` // average of received vouch points
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Vouch is one user's point allocation to a friend
type Vouch struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VoucherID uuid.UUID `db:"voucher_id" json:"voucherId"`
	VoucheeID uuid.UUID `db:"vouchee_id" json:"voucheeId"`
	Points    int       `db:"points" json:"points"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// VouchHistoryType represents the kind of budget-affecting event
type VouchHistoryType string

const (
	VouchHistoryTypeInitial     VouchHistoryType = "initial"
	VouchHistoryTypeVouchSet    VouchHistoryType = "vouch_set"
	VouchHistoryTypeDateReward  VouchHistoryType = "date_reward"
	VouchHistoryTypeDatePenalty VouchHistoryType = "date_penalty"
	VouchHistoryTypeFriendBonus VouchHistoryType = "friend_bonus"
)

// VouchHistory is an append-only record of a budget change
type VouchHistory struct {
	ID             int64            `db:"id" json:"id"`
	UserID         uuid.UUID        `db:"user_id" json:"userId"`
	Type           VouchHistoryType `db:"entry_type" json:"type"`
	Delta          decimal.Decimal  `db:"delta" json:"delta"`
	BudgetAfter    decimal.Decimal  `db:"budget_after" json:"budgetAfter"`
	RelatedUserID  *uuid.UUID       `db:"related_user_id" json:"relatedUserId,omitempty"`
	RelatedMatchID *uuid.UUID       `db:"related_match_id" json:"relatedMatchId,omitempty"`
	Metadata       map[string]any   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}

// VouchResult is returned after a vouch is set
type VouchResult struct {
	Vouch     *Vouch          `json:"vouch"`
	Budget    decimal.Decimal `json:"budget"`
	Allocated decimal.Decimal `json:"allocated"`
}
