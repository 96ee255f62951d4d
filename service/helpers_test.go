package service

import (
	"testing"

	"wingman/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Test utilities

type testMocks struct {
	factory       *MockUnitOfWorkFactory
	uow           *MockUnitOfWork
	users         *MockUserRepository
	friendships   *MockFriendshipRepository
	matches       *MockMatchRepository
	markets       *MockMarketRepository
	bets          *MockBetRepository
	vouches       *MockVouchRepository
	vouchHistory  *MockVouchHistoryRepository
	notifications *MockNotificationRepository
	publisher     *MockEventPublisher
}

func newTestMocks() *testMocks {
	m := &testMocks{
		factory:       new(MockUnitOfWorkFactory),
		uow:           new(MockUnitOfWork),
		users:         new(MockUserRepository),
		friendships:   new(MockFriendshipRepository),
		matches:       new(MockMatchRepository),
		markets:       new(MockMarketRepository),
		bets:          new(MockBetRepository),
		vouches:       new(MockVouchRepository),
		vouchHistory:  new(MockVouchHistoryRepository),
		notifications: new(MockNotificationRepository),
		publisher:     new(MockEventPublisher),
	}

	m.uow.SetUserRepository(m.users)
	m.uow.SetFriendshipRepository(m.friendships)
	m.uow.SetMatchRepository(m.matches)
	m.uow.SetMarketRepository(m.markets)
	m.uow.SetBetRepository(m.bets)
	m.uow.SetVouchRepository(m.vouches)
	m.uow.SetVouchHistoryRepository(m.vouchHistory)
	m.uow.SetNotificationRepository(m.notifications)
	m.uow.SetEventBus(m.publisher)

	m.factory.On("Create").Return(m.uow)
	m.publisher.On("Publish", mock.Anything).Return()
	return m
}

func setupBasicTransactionMocks(mockUoW *MockUnitOfWork) {
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
}

func (m *testMocks) assertExpectations(t *testing.T) {
	assertAllMockExpectations(t, m.users, m.friendships, m.matches, m.markets, m.bets, m.vouches, m.vouchHistory, m.notifications)
}

func assertAllMockExpectations(t *testing.T, mocks ...interface{}) {
	for _, m := range mocks {
		if mockObj, ok := m.(interface{ AssertExpectations(mock.TestingT) bool }); ok {
			mockObj.AssertExpectations(t)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewTestConfig()
	config.SetTestConfig(cfg)
	t.Cleanup(config.ResetConfig)
	return cfg
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
