package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wingman/database"
	"wingman/models"
	"wingman/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MarketRepository implements the MarketRepository interface
type MarketRepository struct {
	q queryable
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(db *database.DB) *MarketRepository {
	return &MarketRepository{q: db.Pool}
}

func newMarketRepositoryWithTx(tx queryable) *MarketRepository {
	return &MarketRepository{q: tx}
}

const marketColumns = `id, match_id, user_a_id, user_b_id, creator_id, title, resolves_at,
	yes_pool, no_pool, state, outcome, resolver_id, evidence, resolved_at, created_at, updated_at`

func scanMarket(row pgx.Row) (*models.Market, error) {
	var m models.Market
	err := row.Scan(
		&m.ID,
		&m.MatchID,
		&m.UserAID,
		&m.UserBID,
		&m.CreatorID,
		&m.Title,
		&m.ResolvesAt,
		&m.YesPool,
		&m.NoPool,
		&m.State,
		&m.Outcome,
		&m.ResolverID,
		&m.Evidence,
		&m.ResolvedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new market
func (r *MarketRepository) Create(ctx context.Context, market *models.Market) error {
	query := `
		INSERT INTO markets (match_id, user_a_id, user_b_id, creator_id, title, resolves_at, yes_pool, no_pool, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		market.MatchID,
		market.UserAID,
		market.UserBID,
		market.CreatorID,
		market.Title,
		market.ResolvesAt,
		market.YesPool,
		market.NoPool,
		market.State,
	).Scan(&market.ID, &market.CreatedAt, &market.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: match already has a market", service.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create market: %w", err)
	}
	return nil
}

func (r *MarketRepository) getByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	m, err := scanMarket(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", id, err)
	}
	return m, nil
}

// GetByID retrieves a market by ID
func (r *MarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a market and locks its row for the rest of the transaction
func (r *MarketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.getByID(ctx, id, true)
}

// List returns markets newest first, optionally filtered by state
func (r *MarketRepository) List(ctx context.Context, state *models.MarketState, limit int) ([]*models.Market, error) {
	query := `
		SELECT ` + marketColumns + `
		FROM markets
		WHERE $1::text IS NULL OR state = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var stateArg *string
	if state != nil {
		s := string(*state)
		stateArg = &s
	}

	rows, err := r.q.Query(ctx, query, stateArg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	defer rows.Close()

	var markets []*models.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// IncrementPool adds a stake to one side of an open market
func (r *MarketRepository) IncrementPool(ctx context.Context, id uuid.UUID, position bool, amount decimal.Decimal) error {
	query := `
		UPDATE markets
		SET yes_pool = yes_pool + CASE WHEN $2 THEN $3::numeric ELSE 0 END,
		    no_pool = no_pool + CASE WHEN $2 THEN 0 ELSE $3::numeric END,
		    updated_at = NOW()
		WHERE id = $1 AND state = 'open'
	`

	tag, err := r.q.Exec(ctx, query, id, position, amount)
	if err != nil {
		return fmt.Errorf("failed to increment pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrMarketClosed
	}
	return nil
}

// MarkResolved stores the resolution. The state guard makes a second resolution fail.
func (r *MarketRepository) MarkResolved(ctx context.Context, market *models.Market) error {
	query := `
		UPDATE markets
		SET state = 'resolved',
		    outcome = $2,
		    resolver_id = $3,
		    evidence = $4,
		    resolved_at = $5,
		    updated_at = NOW()
		WHERE id = $1 AND state <> 'resolved'
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		market.ID,
		market.Outcome,
		market.ResolverID,
		market.Evidence,
		market.ResolvedAt,
	).Scan(&market.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrMarketResolved
	}
	if err != nil {
		return fmt.Errorf("failed to mark market resolved: %w", err)
	}
	return nil
}

// CloseExpired moves open markets past their resolution time to closed
func (r *MarketRepository) CloseExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE markets
		SET state = 'closed', updated_at = NOW()
		WHERE state = 'open' AND resolves_at <= $1
		RETURNING id
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to close expired markets: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan market ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
