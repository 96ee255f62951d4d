package service

import (
	"time"

	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculateSettlement computes pari-mutuel payouts for a market's bets.
// Each winning bet receives amount*totalPool/winningPool floored to the
// token's smallest unit; the flooring dust is reported as Remainder. When
// nobody backed the winning side every payout is zero and the whole pool
// stays in escrow.
func CalculateSettlement(bets []*models.Bet, outcome bool, decimals int32) *models.Settlement {
	totalPool := decimal.Zero
	winningPool := decimal.Zero
	for _, bet := range bets {
		totalPool = totalPool.Add(bet.Amount)
		if bet.Position == outcome {
			winningPool = winningPool.Add(bet.Amount)
		}
	}

	settlement := &models.Settlement{
		Outcome:     outcome,
		TotalPool:   totalPool,
		WinningPool: winningPool,
		LosingPool:  totalPool.Sub(winningPool),
		Payouts:     make([]*models.Payout, 0, len(bets)),
	}

	for _, bet := range bets {
		amount := decimal.Zero
		if bet.Position == outcome && winningPool.IsPositive() {
			// QuoRem truncates, which is a floor for non-negative operands
			amount, _ = bet.Amount.Mul(totalPool).QuoRem(winningPool, decimals)
		}
		settlement.Payouts = append(settlement.Payouts, &models.Payout{
			BetID:    bet.ID,
			BettorID: bet.BettorID,
			Amount:   amount,
		})
	}

	settlement.Remainder = totalPool.Sub(settlement.TotalPaid())
	return settlement
}

// applySettlement copies the computed payouts onto the bets
func applySettlement(bets []*models.Bet, settlement *models.Settlement, settledAt time.Time) {
	payouts := make(map[uuid.UUID]*models.Payout, len(settlement.Payouts))
	for _, p := range settlement.Payouts {
		payouts[p.BetID] = p
	}

	for _, bet := range bets {
		bet.SettledAt = &settledAt
		bet.Payout = decimal.Zero
		if bet.Position != settlement.Outcome {
			bet.Status = models.BetStatusLost
			continue
		}
		bet.Status = models.BetStatusWon
		if p, ok := payouts[bet.ID]; ok {
			bet.Payout = p.Amount
		}
	}
}
