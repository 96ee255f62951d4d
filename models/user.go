package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account keyed by the identity provider's subject
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	DisplayName   string    `db:"display_name" json:"displayName"`
	WalletAddress *string   `db:"wallet_address" json:"walletAddress,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Name returns the display name, falling back to the email address
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// UserProfile combines a user with their vouch standing
type UserProfile struct {
	User       *User       `json:"user"`
	VouchStats *VouchStats `json:"vouchStats"`
}
