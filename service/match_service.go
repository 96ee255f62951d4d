package service

import (
	"context"
	"fmt"
	"time"

	"wingman/config"
	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type matchService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	ledger     vouchLedger
}

// NewMatchService creates a new match service
func NewMatchService(uowFactory UnitOfWorkFactory, cfg *config.Config) MatchService {
	return &matchService{
		uowFactory: uowFactory,
		config:     cfg,
		ledger:     vouchLedger{policy: NewVouchPolicy(cfg)},
	}
}

// ProposeMatch creates a match between two friends of the matchmaker
func (s *matchService) ProposeMatch(ctx context.Context, matchmakerID, userAID, userBID uuid.UUID) (*models.Match, error) {
	if userAID == userBID {
		return nil, fmt.Errorf("%w: cannot match a user with themselves", ErrInvalidInput)
	}
	if matchmakerID == userAID || matchmakerID == userBID {
		return nil, fmt.Errorf("%w: matchmaker cannot be one of the daters", ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	for _, userID := range []uuid.UUID{userAID, userBID} {
		friends, err := uow.FriendshipRepository().AreFriends(ctx, matchmakerID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check friendship: %w", err)
		}
		if !friends {
			return nil, fmt.Errorf("%w: matchmaker must be friends with %s", ErrNotFriends, userID)
		}
	}

	match := &models.Match{
		MatchmakerID: matchmakerID,
		UserAID:      userAID,
		UserBID:      userBID,
		Status:       models.MatchStatusProposed,
	}
	if err := uow.MatchRepository().Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	uow.EventBus().Publish(events.MatchProposedEvent{
		MatchID:      match.ID,
		MatchmakerID: matchmakerID,
		UserAID:      userAID,
		UserBID:      userBID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, nil
}

// RespondToMatch records a participant's answer. Once both participants accept,
// the market on the date is opened in the same transaction.
func (s *matchService) RespondToMatch(ctx context.Context, userID, matchID uuid.UUID, accept bool) (*models.MatchResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	if !match.IsParticipant(userID) {
		return nil, fmt.Errorf("%w: only the matched users can respond", ErrForbidden)
	}
	if match.Status != models.MatchStatusProposed {
		return nil, fmt.Errorf("%w: match is already %s", ErrConflict, match.Status)
	}

	result := &models.MatchResult{Match: match}

	switch {
	case !accept:
		match.Status = models.MatchStatusDeclined
	case userID == match.UserAID:
		match.UserAAccepted = true
	default:
		match.UserBAccepted = true
	}

	if match.Status == models.MatchStatusProposed && match.BothAccepted() {
		market, err := s.openMarket(ctx, uow, match)
		if err != nil {
			return nil, err
		}
		match.Status = models.MatchStatusAccepted
		match.MarketID = &market.ID
		result.Market = market
	}

	if err := uow.MatchRepository().Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchID": matchID,
		"userID":  userID,
		"accept":  accept,
		"status":  match.Status,
	}).Info("Match response recorded")

	return result, nil
}

func (s *matchService) openMarket(ctx context.Context, uow UnitOfWork, match *models.Match) (*models.Market, error) {
	userA, err := uow.UserRepository().GetByID(ctx, match.UserAID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	userB, err := uow.UserRepository().GetByID(ctx, match.UserBID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if userA == nil || userB == nil {
		return nil, fmt.Errorf("%w: matched user no longer exists", ErrNotFound)
	}

	matchID := match.ID
	market := &models.Market{
		MatchID:    &matchID,
		UserAID:    match.UserAID,
		UserBID:    match.UserBID,
		CreatorID:  match.MatchmakerID,
		Title:      fmt.Sprintf("Will %s and %s's date be a success?", userA.Name(), userB.Name()),
		ResolvesAt: MarketResolvesAt(time.Now(), s.config.MarketDuration),
		YesPool:    decimal.Zero,
		NoPool:     decimal.Zero,
		State:      models.MarketStateOpen,
	}
	if err := uow.MarketRepository().Create(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}

	uow.EventBus().Publish(events.MarketCreatedEvent{
		MarketID:     market.ID,
		MatchID:      match.ID,
		MatchmakerID: match.MatchmakerID,
		UserAID:      match.UserAID,
		UserBID:      match.UserBID,
		Title:        market.Title,
		ResolvesAt:   market.ResolvesAt,
	})
	return market, nil
}

// ReportDateOutcome completes an accepted match and settles the vouches for
// both daters. The betting market is resolved separately by its resolver.
func (s *matchService) ReportDateOutcome(ctx context.Context, userID, matchID uuid.UUID, success bool) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	if !match.IsParticipant(userID) {
		return nil, fmt.Errorf("%w: only the matched users can report the outcome", ErrForbidden)
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: outcome already reported", ErrConflict)
	}
	if match.Status != models.MatchStatusAccepted {
		return nil, fmt.Errorf("%w: match is %s", ErrConflict, match.Status)
	}

	now := time.Now()
	match.Status = models.MatchStatusCompleted
	match.DateSuccess = &success
	match.CompletedAt = &now
	if err := uow.MatchRepository().Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	entries, err := s.ledger.processOutcome(ctx, uow, &match.ID, match.UserAID, match.UserBID, success)
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.DateOutcomeReportedEvent{
		MatchID:    match.ID,
		ReporterID: userID,
		UserAID:    match.UserAID,
		UserBID:    match.UserBID,
		Success:    success,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchID":     matchID,
		"success":     success,
		"adjustments": len(entries),
	}).Info("Date outcome reported")

	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	matches, err := uow.MatchRepository().ListForUser(ctx, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}
