package service

import (
	"context"

	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetOrCreateUser(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	args := m.Called(ctx, id, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) UpdateWallet(ctx context.Context, id uuid.UUID, walletAddress string) (*models.User, error) {
	args := m.Called(ctx, id, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockFriendService is a mock implementation of FriendService
type MockFriendService struct {
	mock.Mock
}

func (m *MockFriendService) SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Friendship, error) {
	args := m.Called(ctx, requesterID, addresseeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendService) RespondToRequest(ctx context.Context, userID, friendshipID uuid.UUID, accept bool) (*models.Friendship, error) {
	args := m.Called(ctx, userID, friendshipID, accept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockFriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Friendship), args.Error(1)
}

// MockMatchService is a mock implementation of MatchService
type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) ProposeMatch(ctx context.Context, matchmakerID, userAID, userBID uuid.UUID) (*models.Match, error) {
	args := m.Called(ctx, matchmakerID, userAID, userBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchService) RespondToMatch(ctx context.Context, userID, matchID uuid.UUID, accept bool) (*models.MatchResult, error) {
	args := m.Called(ctx, userID, matchID, accept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchResult), args.Error(1)
}

func (m *MockMatchService) ReportDateOutcome(ctx context.Context, userID, matchID uuid.UUID, success bool) (*models.Match, error) {
	args := m.Called(ctx, userID, matchID, success)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchService) ListMatches(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Match, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

// MockMarketService is a mock implementation of MarketService
type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) GetMarket(ctx context.Context, marketID uuid.UUID) (*models.MarketDetail, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketDetail), args.Error(1)
}

func (m *MockMarketService) ListMarkets(ctx context.Context, state *models.MarketState, limit int) ([]*models.Market, error) {
	args := m.Called(ctx, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Market), args.Error(1)
}

func (m *MockMarketService) PlaceBet(ctx context.Context, marketID, bettorID uuid.UUID, position bool, amount decimal.Decimal, txHash *string) (*models.Bet, error) {
	args := m.Called(ctx, marketID, bettorID, position, amount, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockMarketService) ResolveMarket(ctx context.Context, marketID, resolverID uuid.UUID, outcome bool, evidence string) (*models.MarketResult, error) {
	args := m.Called(ctx, marketID, resolverID, outcome, evidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketResult), args.Error(1)
}

func (m *MockMarketService) CloseExpiredMarkets(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockVouchService is a mock implementation of VouchService
type MockVouchService struct {
	mock.Mock
}

func (m *MockVouchService) SetVouch(ctx context.Context, voucherID, voucheeID uuid.UUID, points int) (*models.VouchResult, error) {
	args := m.Called(ctx, voucherID, voucheeID, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VouchResult), args.Error(1)
}

func (m *MockVouchService) ProcessOutcome(ctx context.Context, userAID, userBID uuid.UUID, success bool) ([]*models.VouchHistory, error) {
	args := m.Called(ctx, userAID, userBID, success)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VouchHistory), args.Error(1)
}

func (m *MockVouchService) GetStats(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VouchStats), args.Error(1)
}

func (m *MockVouchService) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.VouchHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VouchHistory), args.Error(1)
}

func (m *MockVouchService) ListGiven(ctx context.Context, userID uuid.UUID) ([]*models.Vouch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vouch), args.Error(1)
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}
