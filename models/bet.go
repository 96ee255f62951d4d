package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus represents the settlement status of a bet
type BetStatus string

const (
	BetStatusOpen BetStatus = "open"
	BetStatusWon  BetStatus = "won"
	BetStatusLost BetStatus = "lost"
)

// Bet represents a stake on one side of a market
type Bet struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	MarketID  uuid.UUID       `db:"market_id" json:"marketId"`
	BettorID  uuid.UUID       `db:"bettor_id" json:"bettorId"`
	Position  bool            `db:"position" json:"position"` // true backs YES
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    BetStatus       `db:"status" json:"status"`
	Payout    decimal.Decimal `db:"payout" json:"payout"`
	TxHash    *string         `db:"tx_hash" json:"txHash,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	SettledAt *time.Time      `db:"settled_at" json:"settledAt,omitempty"`
}

// IsOpen returns true while the bet is awaiting settlement
func (b *Bet) IsOpen() bool {
	return b.Status == BetStatusOpen
}

// Payout is the amount owed to one winning bet after settlement
type Payout struct {
	BetID    uuid.UUID       `json:"betId"`
	BettorID uuid.UUID       `json:"bettorId"`
	Amount   decimal.Decimal `json:"amount"`
}
