package service

import (
	"context"
	"fmt"
	"strings"

	"wingman/config"
	"wingman/events"
	"wingman/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
	ledger     vouchLedger
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, cfg *config.Config) UserService {
	return &userService{
		uowFactory: uowFactory,
		ledger:     vouchLedger{policy: NewVouchPolicy(cfg)},
	}
}

// GetOrCreateUser retrieves an existing user or creates one for a newly seen identity
func (s *userService) GetOrCreateUser(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user = &models.User{
		ID:          id,
		Email:       email,
		DisplayName: displayNameFromEmail(email),
	}

	// Primary key conflict means a concurrent request created the user first
	created, err := uow.UserRepository().Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if created {
		uow.EventBus().Publish(events.UserCreatedEvent{UserID: id, Email: email})
	} else {
		user, err = uow.UserRepository().GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %s missing after create", id)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if created {
		log.WithFields(log.Fields{
			"userID": id,
			"email":  email,
		}).Info("Created user")
	}
	return user, nil
}

// GetProfile returns a user together with their vouch stats
func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}

	stats, err := s.ledger.ensureStats(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	stats.ReputationScore, err = uow.VouchRepository().GetReputationScore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation score: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.UserProfile{User: user, VouchStats: stats}, nil
}

// UpdateWallet stores the checksummed form of an EVM wallet address
func (s *userService) UpdateWallet(ctx context.Context, id uuid.UUID, walletAddress string) (*models.User, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("%w: %q is not a valid wallet address", ErrInvalidInput, walletAddress)
	}
	checksummed := common.HexToAddress(walletAddress).Hex()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}

	if err := uow.UserRepository().UpdateWallet(ctx, id, checksummed); err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}
	user.WalletAddress = &checksummed

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
