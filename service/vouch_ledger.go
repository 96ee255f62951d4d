package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"wingman/config"
	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// VouchPolicy holds the constants that drive the vouch budget ledger
type VouchPolicy struct {
	BaseBudget      decimal.Decimal
	PointsPerFriend decimal.Decimal
	RewardPerPoint  decimal.Decimal
	PenaltyPerPoint decimal.Decimal
}

// NewVouchPolicy builds the policy from configuration
func NewVouchPolicy(cfg *config.Config) VouchPolicy {
	return VouchPolicy{
		BaseBudget:      decimal.NewFromFloat(cfg.VouchBaseBudget),
		PointsPerFriend: decimal.NewFromFloat(cfg.VouchPointsPerFriend),
		RewardPerPoint:  decimal.NewFromFloat(cfg.VouchRewardPerPoint),
		PenaltyPerPoint: decimal.NewFromFloat(cfg.VouchPenaltyPerPoint),
	}
}

// InitialBudget is the budget a user starts with given their accepted friend count
func (p VouchPolicy) InitialBudget(friendCount int) decimal.Decimal {
	return p.BaseBudget.Add(p.PointsPerFriend.Mul(decimal.NewFromInt(int64(friendCount))))
}

// OutcomeChange is the budget change for a voucher who put points behind a dater
func (p VouchPolicy) OutcomeChange(points int, success bool) decimal.Decimal {
	pts := decimal.NewFromInt(int64(points))
	if success {
		return pts.Mul(p.RewardPerPoint)
	}
	return pts.Mul(p.PenaltyPerPoint).Neg()
}

// ClampPoints limits points to [0, MaxVouchPoints]
func ClampPoints(points int) int {
	if points < 0 {
		return 0
	}
	if points > models.MaxVouchPoints {
		return models.MaxVouchPoints
	}
	return points
}

// RecordVouchChange appends a vouch history entry and emits the matching event.
// Every budget change goes through here.
func RecordVouchChange(ctx context.Context, uow UnitOfWork, history *models.VouchHistory) error {
	if err := uow.VouchHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record vouch history: %w", err)
	}

	uow.EventBus().Publish(events.VouchBudgetAdjustedEvent{
		UserID:      history.UserID,
		EntryType:   history.Type,
		Delta:       history.Delta,
		BudgetAfter: history.BudgetAfter,
	})
	return nil
}

// vouchLedger applies the budget rules inside a caller's unit of work
type vouchLedger struct {
	policy VouchPolicy
}

// ensureStats loads the user's stats with a row lock, creating them with the
// initial budget on first access
func (l vouchLedger) ensureStats(ctx context.Context, uow UnitOfWork, userID uuid.UUID) (*models.VouchStats, error) {
	stats, err := uow.VouchRepository().GetStatsForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vouch stats: %w", err)
	}
	if stats != nil {
		return stats, nil
	}

	friendCount, err := uow.FriendshipRepository().CountAccepted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count friends: %w", err)
	}

	initial := l.policy.InitialBudget(friendCount)
	stats = &models.VouchStats{
		UserID:          userID,
		Budget:          initial,
		BaseBudget:      l.policy.BaseBudget,
		PointsPerFriend: l.policy.PointsPerFriend,
		TotalAllocated:  decimal.Zero,
	}

	created, err := uow.VouchRepository().CreateStats(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to create vouch stats: %w", err)
	}

	if created {
		history := &models.VouchHistory{
			UserID:      userID,
			Type:        models.VouchHistoryTypeInitial,
			Delta:       initial,
			BudgetAfter: initial,
			Metadata: map[string]any{
				"friendCount": friendCount,
			},
		}
		if err := RecordVouchChange(ctx, uow, history); err != nil {
			return nil, err
		}
	}

	// A concurrent request may have created the row first; reload under lock either way
	stats, err = uow.VouchRepository().GetStatsForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload vouch stats: %w", err)
	}
	if stats == nil {
		return nil, fmt.Errorf("vouch stats missing after create for user %s", userID)
	}
	return stats, nil
}

// setVouch moves points between the voucher's budget and a vouch
func (l vouchLedger) setVouch(ctx context.Context, uow UnitOfWork, voucherID, voucheeID uuid.UUID, points int) (*models.VouchResult, error) {
	points = ClampPoints(points)

	stats, err := l.ensureStats(ctx, uow, voucherID)
	if err != nil {
		return nil, err
	}

	existing, err := uow.VouchRepository().GetVouch(ctx, voucherID, voucheeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing vouch: %w", err)
	}
	oldPoints := 0
	if existing != nil {
		oldPoints = existing.Points
	}

	delta := decimal.NewFromInt(int64(points - oldPoints))
	if delta.IsPositive() && stats.Budget.LessThan(delta) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBudget, stats.Budget.String(), delta.String())
	}

	vouch := existing
	if vouch == nil {
		vouch = &models.Vouch{VoucherID: voucherID, VoucheeID: voucheeID}
	}
	vouch.Points = points

	// Same value: nothing moves and nothing is logged
	if delta.IsZero() {
		return &models.VouchResult{Vouch: vouch, Budget: stats.Budget, Allocated: stats.TotalAllocated}, nil
	}

	stats.Budget = stats.Budget.Sub(delta)
	stats.TotalAllocated = stats.TotalAllocated.Add(delta)
	if err := uow.VouchRepository().UpdateStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to update vouch stats: %w", err)
	}

	if err := uow.VouchRepository().UpsertVouch(ctx, vouch); err != nil {
		return nil, fmt.Errorf("failed to save vouch: %w", err)
	}

	history := &models.VouchHistory{
		UserID:        voucherID,
		Type:          models.VouchHistoryTypeVouchSet,
		Delta:         delta.Neg(),
		BudgetAfter:   stats.Budget,
		RelatedUserID: &voucheeID,
		Metadata: map[string]any{
			"oldPoints": oldPoints,
			"newPoints": points,
		},
	}
	if err := RecordVouchChange(ctx, uow, history); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.VouchChangedEvent{
		VoucherID:   voucherID,
		VoucheeID:   voucheeID,
		OldPoints:   oldPoints,
		NewPoints:   points,
		BudgetAfter: stats.Budget,
	})

	return &models.VouchResult{Vouch: vouch, Budget: stats.Budget, Allocated: stats.TotalAllocated}, nil
}

// processOutcome rewards or penalizes every active voucher of both daters.
// Vouchers of A are processed before vouchers of B; someone who vouched for
// both receives one adjustment per relationship. Voucher stats are locked in
// ID order so concurrent outcomes sharing vouchers cannot deadlock.
func (l vouchLedger) processOutcome(ctx context.Context, uow UnitOfWork, matchID *uuid.UUID, userAID, userBID uuid.UUID, success bool) ([]*models.VouchHistory, error) {
	entryType := models.VouchHistoryTypeDatePenalty
	if success {
		entryType = models.VouchHistoryTypeDateReward
	}

	var active []*models.Vouch
	var voucherIDs []uuid.UUID
	for _, voucheeID := range []uuid.UUID{userAID, userBID} {
		vouches, err := uow.VouchRepository().GetVouchersOf(ctx, voucheeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get vouchers: %w", err)
		}
		for _, vouch := range vouches {
			if vouch.Points <= 0 {
				continue
			}
			active = append(active, vouch)
			voucherIDs = append(voucherIDs, vouch.VoucherID)
		}
	}

	lockedStats := make(map[uuid.UUID]*models.VouchStats)
	for _, voucherID := range lockOrder(voucherIDs...) {
		stats, err := l.ensureStats(ctx, uow, voucherID)
		if err != nil {
			return nil, err
		}
		lockedStats[voucherID] = stats
	}

	var entries []*models.VouchHistory
	for _, vouch := range active {
		stats := lockedStats[vouch.VoucherID]

		change := l.policy.OutcomeChange(vouch.Points, success)
		newBudget := decimal.Max(decimal.Zero, stats.Budget.Add(change))
		applied := newBudget.Sub(stats.Budget)

		stats.Budget = newBudget
		if err := uow.VouchRepository().UpdateStats(ctx, stats); err != nil {
			return nil, fmt.Errorf("failed to update vouch stats: %w", err)
		}

		vouchee := vouch.VoucheeID
		history := &models.VouchHistory{
			UserID:         vouch.VoucherID,
			Type:           entryType,
			Delta:          applied,
			BudgetAfter:    newBudget,
			RelatedUserID:  &vouchee,
			RelatedMatchID: matchID,
			Metadata: map[string]any{
				"points":          vouch.Points,
				"requestedChange": change.String(),
			},
		}
		if err := RecordVouchChange(ctx, uow, history); err != nil {
			return nil, err
		}
		entries = append(entries, history)

		log.WithFields(log.Fields{
			"voucherID": vouch.VoucherID,
			"voucheeID": vouchee,
			"points":    vouch.Points,
			"change":    applied.String(),
			"budget":    newBudget.String(),
		}).Debug("Applied date outcome to voucher")
	}

	return entries, nil
}

// lockOrder returns the distinct IDs sorted bytewise, the order rows are locked in
func lockOrder(ids ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	slices.SortFunc(ordered, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ordered
}

// grantFriendBonus widens an existing budget when the user gains a friend.
// Users without stats pick the friend up in their initial budget instead.
func (l vouchLedger) grantFriendBonus(ctx context.Context, uow UnitOfWork, userID, friendID uuid.UUID) error {
	stats, err := uow.VouchRepository().GetStatsForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get vouch stats: %w", err)
	}
	if stats == nil {
		return nil
	}

	bonus := stats.PointsPerFriend
	stats.Budget = stats.Budget.Add(bonus)
	if err := uow.VouchRepository().UpdateStats(ctx, stats); err != nil {
		return fmt.Errorf("failed to update vouch stats: %w", err)
	}

	history := &models.VouchHistory{
		UserID:        userID,
		Type:          models.VouchHistoryTypeFriendBonus,
		Delta:         bonus,
		BudgetAfter:   stats.Budget,
		RelatedUserID: &friendID,
	}
	return RecordVouchChange(ctx, uow, history)
}
