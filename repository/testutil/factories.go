package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wingman/database"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestUser builds a user with a fresh ID
func CreateTestUser(name string) *models.User {
	return &models.User{
		ID:          uuid.New(),
		Email:       fmt.Sprintf("%s@example.com", name),
		DisplayName: name,
	}
}

// InsertTestUser writes a user directly so tests can reference it
func InsertTestUser(t *testing.T, db *database.DB, name string) *models.User {
	t.Helper()
	user := CreateTestUser(name)
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, email, display_name) VALUES ($1, $2, $3)`,
		user.ID, user.Email, user.DisplayName)
	require.NoError(t, err)
	return user
}

// InsertTestFriendship writes an accepted friendship between two users
func InsertTestFriendship(t *testing.T, db *database.DB, a, b uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(context.Background(),
		`INSERT INTO friendships (requester_id, addressee_id, status, responded_at)
		 VALUES ($1, $2, 'accepted', NOW()) RETURNING id`, a, b).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateTestMarket builds an open market between two users
func CreateTestMarket(userA, userB, creator uuid.UUID) *models.Market {
	return &models.Market{
		UserAID:    userA,
		UserBID:    userB,
		CreatorID:  creator,
		Title:      "Will they hit it off?",
		ResolvesAt: time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		YesPool:    decimal.Zero,
		NoPool:     decimal.Zero,
		State:      models.MarketStateOpen,
	}
}

// CreateTestBet builds an open bet
func CreateTestBet(marketID, bettorID uuid.UUID, position bool, amount string) *models.Bet {
	return &models.Bet{
		MarketID: marketID,
		BettorID: bettorID,
		Position: position,
		Amount:   decimal.RequireFromString(amount),
		Status:   models.BetStatusOpen,
		Payout:   decimal.Zero,
	}
}

// CreateTestVouchStats builds stats with the default budget constants
func CreateTestVouchStats(userID uuid.UUID, budget string) *models.VouchStats {
	return &models.VouchStats{
		UserID:          userID,
		Budget:          decimal.RequireFromString(budget),
		BaseBudget:      decimal.NewFromInt(20),
		PointsPerFriend: decimal.NewFromInt(3),
		TotalAllocated:  decimal.Zero,
	}
}
