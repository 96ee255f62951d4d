package service

import (
	"context"
	"fmt"

	"wingman/config"
	"wingman/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// vouchService implements the VouchService interface
type vouchService struct {
	uowFactory UnitOfWorkFactory
	ledger     vouchLedger
}

// NewVouchService creates a new vouch service
func NewVouchService(uowFactory UnitOfWorkFactory, cfg *config.Config) VouchService {
	return &vouchService{
		uowFactory: uowFactory,
		ledger:     vouchLedger{policy: NewVouchPolicy(cfg)},
	}
}

// SetVouch allocates points from the voucher's budget to a friend
func (s *vouchService) SetVouch(ctx context.Context, voucherID, voucheeID uuid.UUID, points int) (*models.VouchResult, error) {
	if voucherID == voucheeID {
		return nil, fmt.Errorf("%w: cannot vouch for yourself", ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	friends, err := uow.FriendshipRepository().AreFriends(ctx, voucherID, voucheeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !friends {
		return nil, ErrNotFriends
	}

	result, err := s.ledger.setVouch(ctx, uow, voucherID, voucheeID, points)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"voucherID": voucherID,
		"voucheeID": voucheeID,
		"points":    result.Vouch.Points,
		"budget":    result.Budget.String(),
	}).Info("Vouch set")

	return result, nil
}

// ProcessOutcome rewards or penalizes everyone who vouched for either dater
func (s *vouchService) ProcessOutcome(ctx context.Context, userAID, userBID uuid.UUID, success bool) ([]*models.VouchHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := s.ledger.processOutcome(ctx, uow, nil, userAID, userBID, success)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entries, nil
}

// GetStats returns the user's stats with their reputation score
func (s *vouchService) GetStats(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	stats, err := s.ledger.ensureStats(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	stats.ReputationScore, err = uow.VouchRepository().GetReputationScore(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation score: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stats, nil
}

func (s *vouchService) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.VouchHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.VouchHistoryRepository().GetByUser(ctx, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get vouch history: %w", err)
	}
	return history, nil
}

func (s *vouchService) ListGiven(ctx context.Context, userID uuid.UUID) ([]*models.Vouch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	vouches, err := uow.VouchRepository().ListGiven(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouches: %w", err)
	}
	return vouches, nil
}
