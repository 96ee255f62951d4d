package models

import (
	"time"

	"github.com/google/uuid"
)

// FriendshipStatus represents the state of a friend request
type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusDeclined FriendshipStatus = "declined"
)

// Friendship is a friend request and, once accepted, the friendship itself
type Friendship struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	RequesterID uuid.UUID        `db:"requester_id" json:"requesterId"`
	AddresseeID uuid.UUID        `db:"addressee_id" json:"addresseeId"`
	Status      FriendshipStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	RespondedAt *time.Time       `db:"responded_at" json:"respondedAt,omitempty"`
}

// IsPending checks if the request still awaits a response
func (f *Friendship) IsPending() bool {
	return f.Status == FriendshipStatusPending
}

// Other returns the user on the other side of the friendship
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
