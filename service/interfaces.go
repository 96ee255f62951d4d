package service

import (
	"context"
	"time"

	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, returning nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Create inserts the user, returning false if a user with the same ID already exists
	Create(ctx context.Context, user *models.User) (bool, error)

	// UpdateWallet sets the user's wallet address
	UpdateWallet(ctx context.Context, id uuid.UUID, walletAddress string) error
}

// FriendshipRepository defines the interface for the social graph
type FriendshipRepository interface {
	// Create inserts a new friend request
	Create(ctx context.Context, friendship *models.Friendship) error

	// GetByID retrieves a friendship by ID, returning nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error)

	// GetByIDForUpdate retrieves a friendship and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Friendship, error)

	// GetBetween retrieves the friendship between two users in either direction
	GetBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error)

	// UpdateStatus records a response to a pending friend request, returning ErrConflict if it was already answered
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.FriendshipStatus) error

	// Delete removes a friendship row so a declined request can be sent again
	Delete(ctx context.Context, id uuid.UUID) error

	// AreFriends reports whether the two users have an accepted friendship
	AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error)

	// CountAccepted returns the number of accepted friendships of a user
	CountAccepted(ctx context.Context, userID uuid.UUID) (int, error)

	// ListFriends returns the users with an accepted friendship to the user
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error)

	// ListPendingForUser returns pending requests addressed to the user
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error)
}

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)

	// GetByIDForUpdate retrieves a match and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Match, error)

	Update(ctx context.Context, match *models.Match) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Match, error)
}

// MarketRepository defines the interface for market data access
type MarketRepository interface {
	// Create inserts a new open market with empty pools
	Create(ctx context.Context, market *models.Market) error

	// GetByID retrieves a market by ID, returning nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error)

	// GetByIDForUpdate retrieves a market and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error)

	// List returns markets, optionally filtered by state, newest first
	List(ctx context.Context, state *models.MarketState, limit int) ([]*models.Market, error)

	// IncrementPool adds a stake to the YES or NO pool of an open market
	IncrementPool(ctx context.Context, id uuid.UUID, position bool, amount decimal.Decimal) error

	// MarkResolved persists the resolution fields, failing if the market is already resolved
	MarkResolved(ctx context.Context, market *models.Market) error

	// CloseExpired moves open markets past their resolution time to closed
	CloseExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a new open bet
	Create(ctx context.Context, bet *models.Bet) error

	// GetByMarket returns all bets on a market in placement order
	GetByMarket(ctx context.Context, marketID uuid.UUID) ([]*models.Bet, error)

	// GetByBettor returns a user's most recent bets
	GetByBettor(ctx context.Context, bettorID uuid.UUID, limit int) ([]*models.Bet, error)

	// UpdateSettlement persists status, payout and settled_at for settled bets
	UpdateSettlement(ctx context.Context, bets []*models.Bet) error
}

// VouchRepository defines the interface for vouch budgets and vouches
type VouchRepository interface {
	// GetStats retrieves a user's vouch stats, returning nil if not yet created
	GetStats(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error)

	// GetStatsForUpdate retrieves a user's vouch stats and locks the row
	GetStatsForUpdate(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error)

	// CreateStats inserts stats, returning false if the user already has stats
	CreateStats(ctx context.Context, stats *models.VouchStats) (bool, error)

	// UpdateStats persists budget and total allocated
	UpdateStats(ctx context.Context, stats *models.VouchStats) error

	// GetReputationScore averages the points of vouches the user has received
	GetReputationScore(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// GetVouch retrieves the vouch from voucher to vouchee, returning nil if none exists
	GetVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) (*models.Vouch, error)

	// UpsertVouch creates or updates the vouch for the (voucher, vouchee) pair
	UpsertVouch(ctx context.Context, vouch *models.Vouch) error

	// GetVouchersOf returns active (points > 0) vouches received by a user
	GetVouchersOf(ctx context.Context, voucheeID uuid.UUID) ([]*models.Vouch, error)

	// ListGiven returns the vouches a user has given
	ListGiven(ctx context.Context, voucherID uuid.UUID) ([]*models.Vouch, error)
}

// VouchHistoryRepository defines the interface for the append-only vouch ledger
type VouchHistoryRepository interface {
	// Record appends a new history entry
	Record(ctx context.Context, history *models.VouchHistory) error

	// GetByUser returns a user's history entries, newest first
	GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.VouchHistory, error)
}

// NotificationRepository defines the interface for in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)

	// MarkRead marks one of the user's notifications read, returning false if it does not exist
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreateUser returns the user for a verified identity, creating it on first sight
	GetOrCreateUser(ctx context.Context, id uuid.UUID, email string) (*models.User, error)

	// GetProfile returns the user with their vouch stats
	GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)

	// UpdateWallet validates and stores the user's wallet address
	UpdateWallet(ctx context.Context, id uuid.UUID, walletAddress string) (*models.User, error)
}

// FriendService defines the interface for friend requests
type FriendService interface {
	SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Friendship, error)
	RespondToRequest(ctx context.Context, userID, friendshipID uuid.UUID, accept bool) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error)
}

// MatchService defines the interface for matchmaking
type MatchService interface {
	// ProposeMatch creates a match between two friends of the matchmaker
	ProposeMatch(ctx context.Context, matchmakerID, userAID, userBID uuid.UUID) (*models.Match, error)

	// RespondToMatch records a participant's answer; the second acceptance opens a market
	RespondToMatch(ctx context.Context, userID, matchID uuid.UUID, accept bool) (*models.MatchResult, error)

	// ReportDateOutcome completes the match and settles vouches for both participants
	ReportDateOutcome(ctx context.Context, userID, matchID uuid.UUID, success bool) (*models.Match, error)

	GetMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
	ListMatches(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Match, error)
}

// MarketService defines the interface for markets and bets
type MarketService interface {
	GetMarket(ctx context.Context, marketID uuid.UUID) (*models.MarketDetail, error)
	ListMarkets(ctx context.Context, state *models.MarketState, limit int) ([]*models.Market, error)

	// PlaceBet stakes an amount on one side of an open market
	PlaceBet(ctx context.Context, marketID, bettorID uuid.UUID, position bool, amount decimal.Decimal, txHash *string) (*models.Bet, error)

	// ResolveMarket settles the market pari-mutuel style and records every bet's payout
	ResolveMarket(ctx context.Context, marketID, resolverID uuid.UUID, outcome bool, evidence string) (*models.MarketResult, error)

	// CloseExpiredMarkets stops betting on markets whose resolution time has passed
	CloseExpiredMarkets(ctx context.Context) (int, error)
}

// VouchService defines the interface for the vouch budget ledger
type VouchService interface {
	// SetVouch allocates points from the voucher's budget to a friend
	SetVouch(ctx context.Context, voucherID, voucheeID uuid.UUID, points int) (*models.VouchResult, error)

	// ProcessOutcome rewards or penalizes everyone who vouched for either dater
	ProcessOutcome(ctx context.Context, userAID, userBID uuid.UUID, success bool) ([]*models.VouchHistory, error)

	// GetStats returns the user's stats, creating them on first access
	GetStats(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error)

	GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.VouchHistory, error)
	ListGiven(ctx context.Context, userID uuid.UUID) ([]*models.Vouch, error)
}

// NotificationService defines the interface for reading notifications
type NotificationService interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

// EventPublisher defines the interface for publishing events inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repositories behind a single transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	FriendshipRepository() FriendshipRepository
	MatchRepository() MatchRepository
	MarketRepository() MarketRepository
	BetRepository() BetRepository
	VouchRepository() VouchRepository
	VouchHistoryRepository() VouchHistoryRepository
	NotificationRepository() NotificationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Locker takes a short-lived distributed lock, returning ErrLockHeld if it is taken
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Deposit is the escrow payment a bet claims to be backed by
type Deposit struct {
	TxHash   string
	Wallet   string // bettor's wallet, the expected sender
	MarketID uuid.UUID
	Position bool
	Amount   decimal.Decimal
}

// DepositVerifier confirms that a bet's on-chain deposit succeeded and matches the bet
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, deposit Deposit) error
}
