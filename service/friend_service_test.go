package service

import (
	"context"
	"fmt"
	"testing"

	"wingman/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFriendService_SendRequest(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	addressee := uuid.New()

	t.Run("new request", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		m.users.On("GetByID", mock.Anything, addressee).Return(&models.User{ID: addressee}, nil)
		m.friendships.On("GetBetween", mock.Anything, requester, addressee).Return(nil, nil)
		m.friendships.On("Create", mock.Anything, mock.MatchedBy(func(f *models.Friendship) bool {
			return f.RequesterID == requester && f.AddresseeID == addressee && f.IsPending()
		})).Return(nil)

		friendship, err := svc.SendRequest(ctx, requester, addressee)
		require.NoError(t, err)
		assert.Equal(t, models.FriendshipStatusPending, friendship.Status)
		m.publisher.AssertCalled(t, "Publish", mock.AnythingOfType("events.FriendRequestedEvent"))
	})

	t.Run("declined request can be sent again", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		declined := &models.Friendship{ID: uuid.New(), RequesterID: addressee, AddresseeID: requester, Status: models.FriendshipStatusDeclined}
		m.users.On("GetByID", mock.Anything, addressee).Return(&models.User{ID: addressee}, nil)
		m.friendships.On("GetBetween", mock.Anything, requester, addressee).Return(declined, nil)
		m.friendships.On("Delete", mock.Anything, declined.ID).Return(nil)
		m.friendships.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.SendRequest(ctx, requester, addressee)
		require.NoError(t, err)
		m.assertExpectations(t)
	})

	existing := []struct {
		name   string
		status models.FriendshipStatus
	}{
		{"already friends", models.FriendshipStatusAccepted},
		{"already pending", models.FriendshipStatusPending},
	}
	for _, tt := range existing {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMocks()
			setupBasicTransactionMocks(m.uow)
			svc := NewFriendService(m.factory, testConfig(t))

			m.users.On("GetByID", mock.Anything, addressee).Return(&models.User{ID: addressee}, nil)
			m.friendships.On("GetBetween", mock.Anything, requester, addressee).Return(&models.Friendship{Status: tt.status}, nil)

			_, err := svc.SendRequest(ctx, requester, addressee)
			assert.ErrorIs(t, err, ErrAlreadyExists)
		})
	}

	t.Run("unknown addressee", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		m.users.On("GetByID", mock.Anything, addressee).Return(nil, nil)

		_, err := svc.SendRequest(ctx, requester, addressee)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("self request", func(t *testing.T) {
		m := newTestMocks()
		svc := NewFriendService(m.factory, testConfig(t))

		_, err := svc.SendRequest(ctx, requester, requester)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestFriendService_RespondToRequest(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	addressee := uuid.New()

	pending := func() *models.Friendship {
		return &models.Friendship{ID: uuid.New(), RequesterID: requester, AddresseeID: addressee, Status: models.FriendshipStatusPending}
	}

	t.Run("accept grants friend bonus to existing budgets", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		friendship := pending()
		requesterStats := newStats(requester, "20", "0")
		m.friendships.On("GetByIDForUpdate", mock.Anything, friendship.ID).Return(friendship, nil)
		m.friendships.On("UpdateStatus", mock.Anything, friendship.ID, models.FriendshipStatusAccepted).Return(nil)
		m.vouches.On("GetStatsForUpdate", mock.Anything, requester).Return(requesterStats, nil)
		m.vouches.On("GetStatsForUpdate", mock.Anything, addressee).Return(nil, nil)
		m.vouches.On("UpdateStats", mock.Anything, requesterStats).Return(nil)
		m.vouchHistory.On("Record", mock.Anything, mock.MatchedBy(func(h *models.VouchHistory) bool {
			return h.UserID == requester && h.Type == models.VouchHistoryTypeFriendBonus && h.Delta.Equal(dec("3"))
		})).Return(nil)

		result, err := svc.RespondToRequest(ctx, addressee, friendship.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.FriendshipStatusAccepted, result.Status)
		assert.NotNil(t, result.RespondedAt)
		assertDecimal(t, "23", requesterStats.Budget)
		m.publisher.AssertCalled(t, "Publish", mock.AnythingOfType("events.FriendshipAcceptedEvent"))
		m.assertExpectations(t)
	})

	t.Run("decline", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		friendship := pending()
		m.friendships.On("GetByIDForUpdate", mock.Anything, friendship.ID).Return(friendship, nil)
		m.friendships.On("UpdateStatus", mock.Anything, friendship.ID, models.FriendshipStatusDeclined).Return(nil)

		result, err := svc.RespondToRequest(ctx, addressee, friendship.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.FriendshipStatusDeclined, result.Status)
		m.vouches.AssertNotCalled(t, "GetStatsForUpdate", mock.Anything, mock.Anything)
		m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("only addressee may respond", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		friendship := pending()
		m.friendships.On("GetByIDForUpdate", mock.Anything, friendship.ID).Return(friendship, nil)

		_, err := svc.RespondToRequest(ctx, requester, friendship.ID, true)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("already answered", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		friendship := pending()
		friendship.Status = models.FriendshipStatusAccepted
		m.friendships.On("GetByIDForUpdate", mock.Anything, friendship.ID).Return(friendship, nil)

		_, err := svc.RespondToRequest(ctx, addressee, friendship.ID, true)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("request answered by a concurrent response grants no bonus", func(t *testing.T) {
		m := newTestMocks()
		setupBasicTransactionMocks(m.uow)
		svc := NewFriendService(m.factory, testConfig(t))

		friendship := pending()
		m.friendships.On("GetByIDForUpdate", mock.Anything, friendship.ID).Return(friendship, nil)
		m.friendships.On("UpdateStatus", mock.Anything, friendship.ID, models.FriendshipStatusAccepted).
			Return(fmt.Errorf("%w: friendship already answered", ErrConflict))

		_, err := svc.RespondToRequest(ctx, addressee, friendship.ID, true)
		assert.ErrorIs(t, err, ErrConflict)
		m.vouches.AssertNotCalled(t, "GetStatsForUpdate", mock.Anything, mock.Anything)
		m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
		m.uow.AssertNotCalled(t, "Commit")
	})
}
