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

const resolveLockTTL = 30 * time.Second

type marketService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	locker     Locker          // optional
	verifier   DepositVerifier // optional
}

// NewMarketService creates a new market service. locker and verifier may be nil.
func NewMarketService(uowFactory UnitOfWorkFactory, cfg *config.Config, locker Locker, verifier DepositVerifier) MarketService {
	return &marketService{
		uowFactory: uowFactory,
		config:     cfg,
		locker:     locker,
		verifier:   verifier,
	}
}

// GetMarket returns a market with all of its bets
func (s *marketService) GetMarket(ctx context.Context, marketID uuid.UUID) (*models.MarketDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, fmt.Errorf("%w: market %s", ErrNotFound, marketID)
	}

	bets, err := uow.BetRepository().GetByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	return &models.MarketDetail{Market: market, Bets: bets}, nil
}

func (s *marketService) ListMarkets(ctx context.Context, state *models.MarketState, limit int) ([]*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	markets, err := uow.MarketRepository().List(ctx, state, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}

// verifyDeposit checks the bet's escrow deposit on chain. It runs outside the
// betting transaction so the market row is not locked during RPC calls.
func (s *marketService) verifyDeposit(ctx context.Context, marketID, bettorID uuid.UUID, position bool, amount decimal.Decimal, txHash *string) error {
	if txHash == nil || *txHash == "" {
		return fmt.Errorf("%w: deposit transaction hash is required", ErrInvalidInput)
	}

	wallet, err := s.walletOf(ctx, bettorID)
	if err != nil {
		return err
	}

	deposit := Deposit{
		TxHash:   *txHash,
		Wallet:   wallet,
		MarketID: marketID,
		Position: position,
		Amount:   amount,
	}
	if err := s.verifier.VerifyDeposit(ctx, deposit); err != nil {
		return fmt.Errorf("failed to verify deposit: %w", err)
	}
	return nil
}

func (s *marketService) walletOf(ctx context.Context, userID uuid.UUID) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get bettor: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if user.WalletAddress == nil || *user.WalletAddress == "" {
		return "", fmt.Errorf("%w: connect a wallet before betting", ErrInvalidInput)
	}
	return *user.WalletAddress, nil
}

// PlaceBet stakes an amount on one side of an open market
func (s *marketService) PlaceBet(ctx context.Context, marketID, bettorID uuid.UUID, position bool, amount decimal.Decimal, txHash *string) (*models.Bet, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: bet amount must be positive", ErrInvalidInput)
	}
	if !amount.Equal(amount.Truncate(s.config.TokenDecimals)) {
		return nil, fmt.Errorf("%w: bet amount has more than %d decimal places", ErrInvalidInput, s.config.TokenDecimals)
	}

	if s.verifier != nil {
		if err := s.verifyDeposit(ctx, marketID, bettorID, position, amount, txHash); err != nil {
			return nil, err
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Row lock serializes pool increments against resolution
	market, err := uow.MarketRepository().GetByIDForUpdate(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, fmt.Errorf("%w: market %s", ErrNotFound, marketID)
	}
	if market.IsParticipant(bettorID) {
		return nil, fmt.Errorf("%w: participants cannot bet on their own date", ErrForbidden)
	}
	if market.IsResolved() {
		return nil, ErrMarketResolved
	}
	if !market.AcceptsBets(time.Now()) {
		return nil, ErrMarketClosed
	}

	bettor, err := uow.UserRepository().GetByID(ctx, bettorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bettor: %w", err)
	}
	if bettor == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, bettorID)
	}

	bet := &models.Bet{
		MarketID: marketID,
		BettorID: bettorID,
		Position: position,
		Amount:   amount,
		Status:   models.BetStatusOpen,
		Payout:   decimal.Zero,
		TxHash:   txHash,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	if err := uow.MarketRepository().IncrementPool(ctx, marketID, position, amount); err != nil {
		return nil, fmt.Errorf("failed to update pool: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		BetID:    bet.ID,
		MarketID: marketID,
		BettorID: bettorID,
		Position: position,
		Amount:   amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"marketID": marketID,
		"bettorID": bettorID,
		"position": position,
		"amount":   amount.String(),
	}).Info("Bet placed")

	return bet, nil
}

// ResolveMarket settles a market in a single transaction. Resolution is
// terminal: a second call is rejected rather than recomputed.
func (s *marketService) ResolveMarket(ctx context.Context, marketID, resolverID uuid.UUID, outcome bool, evidence string) (*models.MarketResult, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "market:resolve:"+marketID.String(), resolveLockTTL)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByIDForUpdate(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, fmt.Errorf("%w: market %s", ErrNotFound, marketID)
	}
	if !s.config.IsResolver(resolverID) && market.CreatorID != resolverID {
		return nil, fmt.Errorf("%w: user %s cannot resolve this market", ErrForbidden, resolverID)
	}
	if market.IsResolved() {
		return nil, ErrMarketResolved
	}

	bets, err := uow.BetRepository().GetByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	settlement := CalculateSettlement(bets, outcome, s.config.TokenDecimals)
	if !settlement.TotalPool.Equal(market.TotalPool()) {
		log.WithFields(log.Fields{
			"marketID":  marketID,
			"betTotal":  settlement.TotalPool.String(),
			"poolTotal": market.TotalPool().String(),
		}).Warn("Market pools disagree with bet totals, settling from bets")
	}

	now := time.Now()
	applySettlement(bets, settlement, now)
	if len(bets) > 0 {
		if err := uow.BetRepository().UpdateSettlement(ctx, bets); err != nil {
			return nil, fmt.Errorf("failed to update bets: %w", err)
		}
	}

	market.State = models.MarketStateResolved
	market.Outcome = &outcome
	market.ResolverID = &resolverID
	market.ResolvedAt = &now
	if evidence != "" {
		market.Evidence = &evidence
	}
	if err := uow.MarketRepository().MarkResolved(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to resolve market: %w", err)
	}

	uow.EventBus().Publish(newMarketResolvedEvent(market, settlement, bets, evidence, now))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"marketID":    marketID,
		"outcome":     outcome,
		"totalPool":   settlement.TotalPool.String(),
		"winningPool": settlement.WinningPool.String(),
		"remainder":   settlement.Remainder.String(),
		"bets":        len(bets),
	}).Info("Market resolved")

	return &models.MarketResult{Market: market, Settlement: settlement}, nil
}

// CloseExpiredMarkets stops betting on markets whose resolution time has passed
func (s *marketService) CloseExpiredMarkets(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ids, err := uow.MarketRepository().CloseExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to close expired markets: %w", err)
	}
	for _, id := range ids {
		uow.EventBus().Publish(events.MarketClosedEvent{MarketID: id})
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(ids), nil
}

func newMarketResolvedEvent(market *models.Market, settlement *models.Settlement, bets []*models.Bet, evidence string, resolvedAt time.Time) events.MarketResolvedEvent {
	payouts := make([]models.Payout, 0, len(settlement.Payouts))
	for _, p := range settlement.Payouts {
		if p.Amount.IsPositive() {
			payouts = append(payouts, *p)
		}
	}

	seen := make(map[uuid.UUID]bool, len(bets))
	bettors := make([]uuid.UUID, 0, len(bets))
	for _, bet := range bets {
		if !seen[bet.BettorID] {
			seen[bet.BettorID] = true
			bettors = append(bettors, bet.BettorID)
		}
	}

	return events.MarketResolvedEvent{
		MarketID:    market.ID,
		Title:       market.Title,
		ResolverID:  *market.ResolverID,
		Outcome:     settlement.Outcome,
		Evidence:    evidence,
		TotalPool:   settlement.TotalPool,
		WinningPool: settlement.WinningPool,
		Remainder:   settlement.Remainder,
		Payouts:     payouts,
		BettorIDs:   bettors,
		ResolvedAt:  resolvedAt,
	}
}
