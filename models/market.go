package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketState represents the lifecycle state of a market
type MarketState string

const (
	MarketStateOpen     MarketState = "open"
	MarketStateClosed   MarketState = "closed" // past resolves_at, awaiting resolution
	MarketStateResolved MarketState = "resolved"
)

// Market is a binary pari-mutuel market on whether a date succeeds
type Market struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	MatchID    *uuid.UUID      `db:"match_id" json:"matchId,omitempty"`
	UserAID    uuid.UUID       `db:"user_a_id" json:"userAId"`
	UserBID    uuid.UUID       `db:"user_b_id" json:"userBId"`
	CreatorID  uuid.UUID       `db:"creator_id" json:"creatorId"`
	Title      string          `db:"title" json:"title"`
	ResolvesAt time.Time       `db:"resolves_at" json:"resolvesAt"`
	YesPool    decimal.Decimal `db:"yes_pool" json:"yesPool"`
	NoPool     decimal.Decimal `db:"no_pool" json:"noPool"`
	State      MarketState     `db:"state" json:"state"`
	Outcome    *bool           `db:"outcome" json:"outcome,omitempty"`
	ResolverID *uuid.UUID      `db:"resolver_id" json:"resolverId,omitempty"`
	Evidence   *string         `db:"evidence" json:"evidence,omitempty"`
	ResolvedAt *time.Time      `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

// IsResolved checks if the market has been settled
func (m *Market) IsResolved() bool {
	return m.State == MarketStateResolved
}

// AcceptsBets checks if the market is open and its resolution time has not passed
func (m *Market) AcceptsBets(now time.Time) bool {
	return m.State == MarketStateOpen && now.Before(m.ResolvesAt)
}

// IsParticipant checks if the user is one of the two daters
func (m *Market) IsParticipant(userID uuid.UUID) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// TotalPool returns the combined YES and NO pools
func (m *Market) TotalPool() decimal.Decimal {
	return m.YesPool.Add(m.NoPool)
}

// MarketDetail combines a market with its bets
type MarketDetail struct {
	Market *Market `json:"market"`
	Bets   []*Bet  `json:"bets"`
}

// Settlement is the outcome of the pari-mutuel calculation over a market's bets
type Settlement struct {
	Outcome     bool            `json:"outcome"`
	TotalPool   decimal.Decimal `json:"totalPool"`
	WinningPool decimal.Decimal `json:"winningPool"`
	LosingPool  decimal.Decimal `json:"losingPool"`
	Remainder   decimal.Decimal `json:"remainder"` // rounding dust left in escrow
	Payouts     []*Payout       `json:"payouts"`
}

// TotalPaid sums all payouts
func (s *Settlement) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Payouts {
		total = total.Add(p.Amount)
	}
	return total
}

// MarketResult is returned to the resolver after a successful settlement
type MarketResult struct {
	Market     *Market     `json:"market"`
	Settlement *Settlement `json:"settlement"`
}
