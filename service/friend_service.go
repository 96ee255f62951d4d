package service

import (
	"context"
	"fmt"
	"time"

	"wingman/config"
	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type friendService struct {
	uowFactory UnitOfWorkFactory
	ledger     vouchLedger
}

// NewFriendService creates a new friend service
func NewFriendService(uowFactory UnitOfWorkFactory, cfg *config.Config) FriendService {
	return &friendService{
		uowFactory: uowFactory,
		ledger:     vouchLedger{policy: NewVouchPolicy(cfg)},
	}
}

// SendRequest creates a pending friend request. A previously declined request
// between the same pair is replaced.
func (s *friendService) SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Friendship, error) {
	if requesterID == addresseeID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	addressee, err := uow.UserRepository().GetByID(ctx, addresseeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get addressee: %w", err)
	}
	if addressee == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, addresseeID)
	}

	existing, err := uow.FriendshipRepository().GetBetween(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing friendship: %w", err)
	}
	if existing != nil {
		switch existing.Status {
		case models.FriendshipStatusAccepted:
			return nil, fmt.Errorf("%w: already friends", ErrAlreadyExists)
		case models.FriendshipStatusPending:
			return nil, fmt.Errorf("%w: friend request already pending", ErrAlreadyExists)
		default:
			if err := uow.FriendshipRepository().Delete(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to clear declined request: %w", err)
			}
		}
	}

	friendship := &models.Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      models.FriendshipStatusPending,
	}
	if err := uow.FriendshipRepository().Create(ctx, friendship); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	uow.EventBus().Publish(events.FriendRequestedEvent{
		FriendshipID: friendship.ID,
		RequesterID:  requesterID,
		AddresseeID:  addresseeID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return friendship, nil
}

// RespondToRequest accepts or declines a pending request addressed to the user.
// Accepting widens both users' vouch budgets.
func (s *friendService) RespondToRequest(ctx context.Context, userID, friendshipID uuid.UUID, accept bool) (*models.Friendship, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	friendship, err := uow.FriendshipRepository().GetByIDForUpdate(ctx, friendshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	if friendship == nil {
		return nil, fmt.Errorf("%w: friend request %s", ErrNotFound, friendshipID)
	}
	if friendship.AddresseeID != userID {
		return nil, fmt.Errorf("%w: only the addressee can respond to a friend request", ErrForbidden)
	}
	if !friendship.IsPending() {
		return nil, fmt.Errorf("%w: friend request already %s", ErrConflict, friendship.Status)
	}

	status := models.FriendshipStatusDeclined
	if accept {
		status = models.FriendshipStatusAccepted
	}
	if err := uow.FriendshipRepository().UpdateStatus(ctx, friendshipID, status); err != nil {
		return nil, fmt.Errorf("failed to update friend request: %w", err)
	}
	now := time.Now()
	friendship.Status = status
	friendship.RespondedAt = &now

	if accept {
		for _, id := range lockOrder(friendship.RequesterID, friendship.AddresseeID) {
			friendID := friendship.RequesterID
			if id == friendship.RequesterID {
				friendID = friendship.AddresseeID
			}
			if err := s.ledger.grantFriendBonus(ctx, uow, id, friendID); err != nil {
				return nil, err
			}
		}

		uow.EventBus().Publish(events.FriendshipAcceptedEvent{
			FriendshipID: friendship.ID,
			RequesterID:  friendship.RequesterID,
			AddresseeID:  friendship.AddresseeID,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"friendshipID": friendshipID,
		"status":       status,
	}).Info("Friend request answered")

	return friendship, nil
}

func (s *friendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	friends, err := uow.FriendshipRepository().ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

func (s *friendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests, err := uow.FriendshipRepository().ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	return requests, nil
}
