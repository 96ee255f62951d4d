package repository

import (
	"context"
	"fmt"

	"wingman/database"
	"wingman/models"
	"wingman/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id, market_id, bettor_id, position, amount, status, payout, tx_hash, created_at, settled_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var b models.Bet
	err := row.Scan(
		&b.ID,
		&b.MarketID,
		&b.BettorID,
		&b.Position,
		&b.Amount,
		&b.Status,
		&b.Payout,
		&b.TxHash,
		&b.CreatedAt,
		&b.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts an open bet
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (market_id, bettor_id, position, amount, status, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, payout, created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.MarketID,
		bet.BettorID,
		bet.Position,
		bet.Amount,
		bet.Status,
		bet.TxHash,
	).Scan(&bet.ID, &bet.Payout, &bet.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: deposit transaction already used", service.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}
	return nil
}

func (r *BetRepository) list(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// GetByMarket returns every bet on a market in placement order
func (r *BetRepository) GetByMarket(ctx context.Context, marketID uuid.UUID) ([]*models.Bet, error) {
	return r.list(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE market_id = $1
		ORDER BY created_at, id
	`, marketID)
}

// GetByBettor returns a user's most recent bets
func (r *BetRepository) GetByBettor(ctx context.Context, bettorID uuid.UUID, limit int) ([]*models.Bet, error) {
	return r.list(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE bettor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, bettorID, limit)
}

// UpdateSettlement writes status and payout for every settled bet in one batch
func (r *BetRepository) UpdateSettlement(ctx context.Context, bets []*models.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	query := `
		UPDATE bets
		SET status = $2, payout = $3, settled_at = $4
		WHERE id = $1 AND status = 'open'
	`

	batch := &pgx.Batch{}
	for _, bet := range bets {
		batch.Queue(query, bet.ID, bet.Status, bet.Payout, bet.SettledAt)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for _, bet := range bets {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("failed to settle bet %s: %w", bet.ID, err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("%w: bet %s already settled", service.ErrConflict, bet.ID)
		}
	}
	return nil
}
