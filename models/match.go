package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus represents the state of a proposed match
type MatchStatus string

const (
	MatchStatusProposed  MatchStatus = "proposed"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusDeclined  MatchStatus = "declined"
	MatchStatusCompleted MatchStatus = "completed"
)

// Match is a matchmaker's proposal that two of their friends go on a date
type Match struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	MatchmakerID  uuid.UUID   `db:"matchmaker_id" json:"matchmakerId"`
	UserAID       uuid.UUID   `db:"user_a_id" json:"userAId"`
	UserBID       uuid.UUID   `db:"user_b_id" json:"userBId"`
	UserAAccepted bool        `db:"user_a_accepted" json:"userAAccepted"`
	UserBAccepted bool        `db:"user_b_accepted" json:"userBAccepted"`
	Status        MatchStatus `db:"status" json:"status"`
	MarketID      *uuid.UUID  `db:"market_id" json:"marketId,omitempty"`
	DateSuccess   *bool       `db:"date_success" json:"dateSuccess,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updatedAt"`
	CompletedAt   *time.Time  `db:"completed_at" json:"completedAt,omitempty"`
}

// IsParticipant checks if the user is one of the two people being matched
func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// BothAccepted checks if both participants have agreed to the date
func (m *Match) BothAccepted() bool {
	return m.UserAAccepted && m.UserBAccepted
}

// MatchResult is returned after a participant responds to a match
type MatchResult struct {
	Match  *Match  `json:"match"`
	Market *Market `json:"market,omitempty"`
}
