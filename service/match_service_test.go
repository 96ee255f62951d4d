package service

import (
	"context"
	"testing"
	"time"

	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestMatch(status models.MatchStatus) *models.Match {
	return &models.Match{
		ID:           uuid.New(),
		MatchmakerID: uuid.New(),
		UserAID:      uuid.New(),
		UserBID:      uuid.New(),
		Status:       status,
	}
}

func TestMatchService_ProposeMatch(t *testing.T) {
	ctx := context.Background()
	matchmaker := uuid.New()
	userA := uuid.New()
	userB := uuid.New()

	t.Run("matchmaker friends with both", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		m.friendships.On("AreFriends", mock.Anything, matchmaker, userA).Return(true, nil)
		m.friendships.On("AreFriends", mock.Anything, matchmaker, userB).Return(true, nil)
		m.matches.On("Create", mock.Anything, mock.MatchedBy(func(match *models.Match) bool {
			return match.Status == models.MatchStatusProposed && match.UserAID == userA && match.UserBID == userB
		})).Return(nil)

		match, err := svc.ProposeMatch(ctx, matchmaker, userA, userB)
		require.NoError(t, err)
		assert.Equal(t, matchmaker, match.MatchmakerID)
		m.publisher.AssertCalled(t, "Publish", mock.AnythingOfType("events.MatchProposedEvent"))
		m.assertExpectations(t)
	})

	t.Run("matchmaker must know both daters", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		m.friendships.On("AreFriends", mock.Anything, matchmaker, userA).Return(true, nil)
		m.friendships.On("AreFriends", mock.Anything, matchmaker, userB).Return(false, nil)

		_, err := svc.ProposeMatch(ctx, matchmaker, userA, userB)
		assert.ErrorIs(t, err, ErrNotFriends)
		m.matches.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid pairings", func(t *testing.T) {
		m := newTestMocks()
		svc := NewMatchService(m.factory, testConfig(t))

		_, err := svc.ProposeMatch(ctx, matchmaker, userA, userA)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.ProposeMatch(ctx, matchmaker, matchmaker, userB)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestMatchService_RespondToMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("first acceptance waits for the other dater", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusProposed)
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)
		m.matches.On("Update", mock.Anything, match).Return(nil)

		result, err := svc.RespondToMatch(ctx, match.UserAID, match.ID, true)
		require.NoError(t, err)
		assert.True(t, result.Match.UserAAccepted)
		assert.Equal(t, models.MatchStatusProposed, result.Match.Status)
		assert.Nil(t, result.Market)
		m.markets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("second acceptance opens the market", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		cfg := testConfig(t)
		svc := NewMatchService(m.factory, cfg)

		match := createTestMatch(models.MatchStatusProposed)
		match.UserAAccepted = true
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)
		m.users.On("GetByID", mock.Anything, match.UserAID).Return(&models.User{ID: match.UserAID, DisplayName: "Ana"}, nil)
		m.users.On("GetByID", mock.Anything, match.UserBID).Return(&models.User{ID: match.UserBID, Email: "ben@example.com"}, nil)
		marketID := uuid.New()
		m.markets.On("Create", mock.Anything, mock.MatchedBy(func(market *models.Market) bool {
			return market.CreatorID == match.MatchmakerID && market.State == models.MarketStateOpen && market.YesPool.IsZero()
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Market).ID = marketID
		}).Return(nil)
		m.matches.On("Update", mock.Anything, match).Return(nil)

		result, err := svc.RespondToMatch(ctx, match.UserBID, match.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusAccepted, result.Match.Status)
		require.NotNil(t, result.Market)
		assert.Equal(t, "Will Ana and ben@example.com's date be a success?", result.Market.Title)
		require.NotNil(t, result.Match.MarketID)
		assert.Equal(t, marketID, *result.Match.MarketID)
		assert.WithinDuration(t, time.Now().Add(cfg.MarketDuration), result.Market.ResolvesAt, time.Minute)
		m.publisher.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.Event) bool {
			created, ok := e.(events.MarketCreatedEvent)
			return ok && created.MarketID == marketID && created.MatchID == match.ID
		}))
	})

	t.Run("decline", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusProposed)
		match.UserAAccepted = true
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)
		m.matches.On("Update", mock.Anything, match).Return(nil)

		result, err := svc.RespondToMatch(ctx, match.UserBID, match.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusDeclined, result.Match.Status)
		assert.Nil(t, result.Market)
	})

	t.Run("outsiders cannot respond", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusProposed)
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)

		_, err := svc.RespondToMatch(ctx, match.MatchmakerID, match.ID, true)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("already decided", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusDeclined)
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)

		_, err := svc.RespondToMatch(ctx, match.UserAID, match.ID, true)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestMatchService_ReportDateOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("completes match and settles vouches", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusAccepted)
		voucherID := uuid.New()
		stats := newStats(voucherID, "10", "4")

		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)
		m.matches.On("Update", mock.Anything, match).Return(nil)
		m.vouches.On("GetVouchersOf", mock.Anything, match.UserAID).Return([]*models.Vouch{
			{VoucherID: voucherID, VoucheeID: match.UserAID, Points: 4},
		}, nil)
		m.vouches.On("GetVouchersOf", mock.Anything, match.UserBID).Return([]*models.Vouch{}, nil)
		m.vouches.On("GetStatsForUpdate", mock.Anything, voucherID).Return(stats, nil)
		m.vouches.On("UpdateStats", mock.Anything, stats).Return(nil)
		m.vouchHistory.On("Record", mock.Anything, mock.MatchedBy(func(h *models.VouchHistory) bool {
			return h.Type == models.VouchHistoryTypeDateReward && h.RelatedMatchID != nil && *h.RelatedMatchID == match.ID
		})).Return(nil)

		result, err := svc.ReportDateOutcome(ctx, match.UserBID, match.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusCompleted, result.Status)
		require.NotNil(t, result.DateSuccess)
		assert.True(t, *result.DateSuccess)
		assertDecimal(t, "14", stats.Budget)
		m.assertExpectations(t)
	})

	t.Run("outcome can only be reported once", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusCompleted)
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)

		_, err := svc.ReportDateOutcome(ctx, match.UserAID, match.ID, false)
		assert.ErrorIs(t, err, ErrConflict)
		m.vouches.AssertNotCalled(t, "GetVouchersOf", mock.Anything, mock.Anything)
	})

	t.Run("match must be accepted", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewMatchService(m.factory, testConfig(t))

		match := createTestMatch(models.MatchStatusProposed)
		m.matches.On("GetByIDForUpdate", mock.Anything, match.ID).Return(match, nil)

		_, err := svc.ReportDateOutcome(ctx, match.UserAID, match.ID, true)
		assert.ErrorIs(t, err, ErrConflict)
	})
}
