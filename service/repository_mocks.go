package service

import (
	"context"
	"time"

	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateWallet(ctx context.Context, id uuid.UUID, walletAddress string) error {
	args := m.Called(ctx, id, walletAddress)
	return args.Error(0)
}

// MockFriendshipRepository is a mock implementation of FriendshipRepository
type MockFriendshipRepository struct {
	mock.Mock
}

func (m *MockFriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	args := m.Called(ctx, friendship)
	return args.Error(0)
}

func (m *MockFriendshipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendshipRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendshipRepository) GetBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendshipRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.FriendshipStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockFriendshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFriendshipRepository) AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *MockFriendshipRepository) CountAccepted(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockFriendshipRepository) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockFriendshipRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Friendship), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Update(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Match, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

// MockMarketRepository is a mock implementation of MarketRepository
type MockMarketRepository struct {
	mock.Mock
}

func (m *MockMarketRepository) Create(ctx context.Context, market *models.Market) error {
	args := m.Called(ctx, market)
	return args.Error(0)
}

func (m *MockMarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockMarketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockMarketRepository) List(ctx context.Context, state *models.MarketState, limit int) ([]*models.Market, error) {
	args := m.Called(ctx, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Market), args.Error(1)
}

func (m *MockMarketRepository) IncrementPool(ctx context.Context, id uuid.UUID, position bool, amount decimal.Decimal) error {
	args := m.Called(ctx, id, position, amount)
	return args.Error(0)
}

func (m *MockMarketRepository) MarkResolved(ctx context.Context, market *models.Market) error {
	args := m.Called(ctx, market)
	return args.Error(0)
}

func (m *MockMarketRepository) CloseExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByMarket(ctx context.Context, marketID uuid.UUID) ([]*models.Bet, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByBettor(ctx context.Context, bettorID uuid.UUID, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, bettorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) UpdateSettlement(ctx context.Context, bets []*models.Bet) error {
	args := m.Called(ctx, bets)
	return args.Error(0)
}

// MockVouchRepository is a mock implementation of VouchRepository
type MockVouchRepository struct {
	mock.Mock
}

func (m *MockVouchRepository) GetStats(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VouchStats), args.Error(1)
}

func (m *MockVouchRepository) GetStatsForUpdate(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VouchStats), args.Error(1)
}

func (m *MockVouchRepository) CreateStats(ctx context.Context, stats *models.VouchStats) (bool, error) {
	args := m.Called(ctx, stats)
	return args.Bool(0), args.Error(1)
}

func (m *MockVouchRepository) UpdateStats(ctx context.Context, stats *models.VouchStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockVouchRepository) GetReputationScore(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockVouchRepository) GetVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) (*models.Vouch, error) {
	args := m.Called(ctx, voucherID, voucheeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vouch), args.Error(1)
}

func (m *MockVouchRepository) UpsertVouch(ctx context.Context, vouch *models.Vouch) error {
	args := m.Called(ctx, vouch)
	return args.Error(0)
}

func (m *MockVouchRepository) GetVouchersOf(ctx context.Context, voucheeID uuid.UUID) ([]*models.Vouch, error) {
	args := m.Called(ctx, voucheeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vouch), args.Error(1)
}

func (m *MockVouchRepository) ListGiven(ctx context.Context, voucherID uuid.UUID) ([]*models.Vouch, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vouch), args.Error(1)
}

// MockVouchHistoryRepository is a mock implementation of VouchHistoryRepository
type MockVouchHistoryRepository struct {
	mock.Mock
}

func (m *MockVouchHistoryRepository) Record(ctx context.Context, history *models.VouchHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockVouchHistoryRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.VouchHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VouchHistory), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockLocker is a mock implementation of Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// MockDepositVerifier is a mock implementation of DepositVerifier
type MockDepositVerifier struct {
	mock.Mock
}

func (m *MockDepositVerifier) VerifyDeposit(ctx context.Context, deposit Deposit) error {
	args := m.Called(ctx, deposit)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Transaction methods
// are recorded on the mock; repositories are plain fields set by the test.
type MockUnitOfWork struct {
	mock.Mock

	userRepo         UserRepository
	friendshipRepo   FriendshipRepository
	matchRepo        MatchRepository
	marketRepo       MarketRepository
	betRepo          BetRepository
	vouchRepo        VouchRepository
	vouchHistoryRepo VouchHistoryRepository
	notificationRepo NotificationRepository
	eventBus         EventPublisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) SetUserRepository(repo UserRepository) {
	m.userRepo = repo
}

func (m *MockUnitOfWork) SetFriendshipRepository(repo FriendshipRepository) {
	m.friendshipRepo = repo
}

func (m *MockUnitOfWork) SetMatchRepository(repo MatchRepository) {
	m.matchRepo = repo
}

func (m *MockUnitOfWork) SetMarketRepository(repo MarketRepository) {
	m.marketRepo = repo
}

func (m *MockUnitOfWork) SetBetRepository(repo BetRepository) {
	m.betRepo = repo
}

func (m *MockUnitOfWork) SetVouchRepository(repo VouchRepository) {
	m.vouchRepo = repo
}

func (m *MockUnitOfWork) SetVouchHistoryRepository(repo VouchHistoryRepository) {
	m.vouchHistoryRepo = repo
}

func (m *MockUnitOfWork) SetNotificationRepository(repo NotificationRepository) {
	m.notificationRepo = repo
}

func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) FriendshipRepository() FriendshipRepository {
	return m.friendshipRepo
}

func (m *MockUnitOfWork) MatchRepository() MatchRepository {
	return m.matchRepo
}

func (m *MockUnitOfWork) MarketRepository() MarketRepository {
	return m.marketRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) VouchRepository() VouchRepository {
	return m.vouchRepo
}

func (m *MockUnitOfWork) VouchHistoryRepository() VouchHistoryRepository {
	return m.vouchHistoryRepo
}

func (m *MockUnitOfWork) NotificationRepository() NotificationRepository {
	return m.notificationRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
