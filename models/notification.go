package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies what a notification is about
type NotificationKind string

const (
	NotificationKindFriendRequest  NotificationKind = "friend_request"
	NotificationKindFriendAccepted NotificationKind = "friend_accepted"
	NotificationKindMatchProposed  NotificationKind = "match_proposed"
	NotificationKindMarketCreated  NotificationKind = "market_created"
	NotificationKindMarketResolved NotificationKind = "market_resolved"
	NotificationKindVouchReceived  NotificationKind = "vouch_received"
)

// Notification is an in-app message for a user
type Notification struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"userId"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Payload   map[string]any   `db:"payload" json:"payload"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}
