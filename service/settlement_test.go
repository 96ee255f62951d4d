package service

import (
	"testing"
	"time"

	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBet(position bool, amount string) *models.Bet {
	return &models.Bet{
		ID:       uuid.New(),
		MarketID: uuid.New(),
		BettorID: uuid.New(),
		Position: position,
		Amount:   dec(amount),
		Status:   models.BetStatusOpen,
		Payout:   decimal.Zero,
	}
}

func TestCalculateSettlement(t *testing.T) {
	t.Run("proportional payout to winners", func(t *testing.T) {
		x := newBet(true, "40")
		y := newBet(true, "60")
		z := newBet(false, "50")

		s := CalculateSettlement([]*models.Bet{x, y, z}, true, 6)

		assertDecimal(t, "150", s.TotalPool)
		assertDecimal(t, "100", s.WinningPool)
		assertDecimal(t, "50", s.LosingPool)
		require.Len(t, s.Payouts, 3)
		assertDecimal(t, "60", s.Payouts[0].Amount)
		assertDecimal(t, "90", s.Payouts[1].Amount)
		assertDecimal(t, "0", s.Payouts[2].Amount)
		assertDecimal(t, "0", s.Remainder)
		assertDecimal(t, "150", s.TotalPaid())
	})

	t.Run("nobody backed the winning side", func(t *testing.T) {
		a := newBet(false, "20")
		b := newBet(false, "30")

		s := CalculateSettlement([]*models.Bet{a, b}, true, 6)

		assertDecimal(t, "50", s.TotalPool)
		assertDecimal(t, "0", s.WinningPool)
		for _, p := range s.Payouts {
			assertDecimal(t, "0", p.Amount)
		}
		assertDecimal(t, "50", s.Remainder)
	})

	t.Run("empty market", func(t *testing.T) {
		s := CalculateSettlement(nil, false, 6)

		assertDecimal(t, "0", s.TotalPool)
		assert.Empty(t, s.Payouts)
		assertDecimal(t, "0", s.Remainder)
	})

	t.Run("payouts floor to token precision", func(t *testing.T) {
		bets := []*models.Bet{
			newBet(true, "1"),
			newBet(true, "1"),
			newBet(true, "1"),
			newBet(false, "1"),
		}

		s := CalculateSettlement(bets, true, 6)

		for _, p := range s.Payouts[:3] {
			assertDecimal(t, "1.333333", p.Amount)
		}
		assertDecimal(t, "0.000001", s.Remainder)
		assert.True(t, s.TotalPaid().LessThanOrEqual(s.TotalPool))
	})

	t.Run("payouts never exceed pool and only winners are paid", func(t *testing.T) {
		bets := []*models.Bet{
			newBet(true, "7.123457"),
			newBet(false, "3.1"),
			newBet(true, "0.000001"),
			newBet(false, "11"),
			newBet(true, "2.5"),
		}

		for _, outcome := range []bool{true, false} {
			s := CalculateSettlement(bets, outcome, 6)

			assert.True(t, s.TotalPaid().LessThanOrEqual(s.TotalPool))
			assert.False(t, s.Remainder.IsNegative())
			assert.True(t, s.Remainder.LessThan(dec("0.00001")))
			for i, p := range s.Payouts {
				if p.Amount.IsPositive() {
					assert.Equal(t, outcome, bets[i].Position)
				}
			}
		}
	})
}

func TestApplySettlement(t *testing.T) {
	winner := newBet(true, "40")
	loser := newBet(false, "10")
	bets := []*models.Bet{winner, loser}
	settledAt := time.Now()

	applySettlement(bets, CalculateSettlement(bets, true, 6), settledAt)

	assert.Equal(t, models.BetStatusWon, winner.Status)
	assertDecimal(t, "50", winner.Payout)
	assert.Equal(t, models.BetStatusLost, loser.Status)
	assertDecimal(t, "0", loser.Payout)
	require.NotNil(t, loser.SettledAt)
	assert.Equal(t, settledAt, *loser.SettledAt)
}
