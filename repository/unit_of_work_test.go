package repository

import (
	"context"
	"fmt"
	"testing"

	"wingman/config"
	"wingman/events"
	"wingman/models"
	"wingman/repository/testutil"
	"wingman/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_RollbackDiscardsWrites(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	user := testutil.CreateTestUser("ghost")
	created, err := uow.UserRepository().Create(ctx, user)
	require.NoError(t, err)
	assert.True(t, created)
	uow.EventBus().Publish(events.UserCreatedEvent{UserID: user.ID})

	require.NoError(t, uow.Rollback())
	require.NoError(t, uow.Rollback(), "second rollback is a no-op")

	stored, err := NewUserRepository(testDB.DB).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUnitOfWork_RepositoryBeforeBeginPanics(t *testing.T) {
	uow := NewUnitOfWorkFactory(nil, events.NewBus()).Create()
	assert.Panics(t, func() { uow.MarketRepository() })
}

// Drives the full match to settlement flow against a real database
func TestUnitOfWork_MatchToSettlement(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	cfg := config.NewTestConfig()
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())

	users := service.NewUserService(factory, cfg)
	friends := service.NewFriendService(factory, cfg)
	matches := service.NewMatchService(factory, cfg)
	markets := service.NewMarketService(factory, cfg, nil, nil)
	vouches := service.NewVouchService(factory, cfg)

	newUser := func(name string) *models.User {
		u, err := users.GetOrCreateUser(ctx, uuid.New(), fmt.Sprintf("%s@example.com", name))
		require.NoError(t, err)
		return u
	}
	maker := newUser("maker")
	ana := newUser("ana")
	ben := newUser("ben")
	x := newUser("x")
	y := newUser("y")
	z := newUser("z")

	for _, dater := range []*models.User{ana, ben} {
		req, err := friends.SendRequest(ctx, maker.ID, dater.ID)
		require.NoError(t, err)
		_, err = friends.RespondToRequest(ctx, dater.ID, req.ID, true)
		require.NoError(t, err)
	}

	vouch, err := vouches.SetVouch(ctx, maker.ID, ana.ID, 3)
	require.NoError(t, err)
	assert.True(t, vouch.Budget.Equal(decimal.NewFromInt(23)), "budget %s", vouch.Budget)

	match, err := matches.ProposeMatch(ctx, maker.ID, ana.ID, ben.ID)
	require.NoError(t, err)

	result, err := matches.RespondToMatch(ctx, ana.ID, match.ID, true)
	require.NoError(t, err)
	assert.Nil(t, result.Market)

	result, err = matches.RespondToMatch(ctx, ben.ID, match.ID, true)
	require.NoError(t, err)
	require.NotNil(t, result.Market)
	marketID := result.Market.ID

	_, err = markets.PlaceBet(ctx, marketID, ana.ID, true, decimal.NewFromInt(10), nil)
	assert.ErrorIs(t, err, service.ErrForbidden)

	for _, bet := range []struct {
		user     *models.User
		position bool
		amount   int64
	}{
		{x, true, 40},
		{y, true, 60},
		{z, false, 50},
	} {
		_, err := markets.PlaceBet(ctx, marketID, bet.user.ID, bet.position, decimal.NewFromInt(bet.amount), nil)
		require.NoError(t, err)
	}

	resolved, err := markets.ResolveMarket(ctx, marketID, maker.ID, true, "second date booked")
	require.NoError(t, err)

	settlement := resolved.Settlement
	assert.True(t, settlement.TotalPool.Equal(decimal.NewFromInt(150)))
	assert.True(t, settlement.TotalPaid().Equal(decimal.NewFromInt(150)))
	assert.True(t, settlement.Remainder.IsZero())

	detail, err := markets.GetMarket(ctx, marketID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStateResolved, detail.Market.State)

	payouts := make(map[uuid.UUID]decimal.Decimal)
	for _, b := range detail.Bets {
		payouts[b.BettorID] = b.Payout
	}
	assert.True(t, payouts[x.ID].Equal(decimal.NewFromInt(60)), "x payout %s", payouts[x.ID])
	assert.True(t, payouts[y.ID].Equal(decimal.NewFromInt(90)), "y payout %s", payouts[y.ID])
	assert.True(t, payouts[z.ID].IsZero())

	_, err = markets.ResolveMarket(ctx, marketID, maker.ID, false, "")
	assert.ErrorIs(t, err, service.ErrMarketResolved)

	_, err = matches.ReportDateOutcome(ctx, ben.ID, match.ID, true)
	require.NoError(t, err)

	stats, err := vouches.GetStats(ctx, maker.ID)
	require.NoError(t, err)
	assert.True(t, stats.Budget.Equal(decimal.NewFromInt(26)), "budget %s", stats.Budget)

	history, err := vouches.GetHistory(ctx, maker.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, models.VouchHistoryTypeDateReward, history[0].Type)
	assert.True(t, history[0].Delta.Equal(decimal.NewFromInt(3)))
}
