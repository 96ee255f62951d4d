package repository

import (
	"context"
	"errors"
	"fmt"

	"wingman/database"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// VouchRepository implements the VouchRepository interface
type VouchRepository struct {
	q queryable
}

// NewVouchRepository creates a new vouch repository
func NewVouchRepository(db *database.DB) *VouchRepository {
	return &VouchRepository{q: db.Pool}
}

func newVouchRepositoryWithTx(tx queryable) *VouchRepository {
	return &VouchRepository{q: tx}
}

const (
	vouchStatsColumns = `user_id, budget, base_budget, points_per_friend, total_allocated, created_at, updated_at`
	vouchColumns      = `id, voucher_id, vouchee_id, points, created_at, updated_at`
)

func scanVouchStats(row pgx.Row) (*models.VouchStats, error) {
	var s models.VouchStats
	err := row.Scan(
		&s.UserID,
		&s.Budget,
		&s.BaseBudget,
		&s.PointsPerFriend,
		&s.TotalAllocated,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanVouch(row pgx.Row) (*models.Vouch, error) {
	var v models.Vouch
	err := row.Scan(&v.ID, &v.VoucherID, &v.VoucheeID, &v.Points, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VouchRepository) getStats(ctx context.Context, userID uuid.UUID, forUpdate bool) (*models.VouchStats, error) {
	query := `SELECT ` + vouchStatsColumns + ` FROM vouch_stats WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	stats, err := scanVouchStats(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vouch stats for %s: %w", userID, err)
	}
	return stats, nil
}

// GetStats retrieves a user's vouch stats
func (r *VouchRepository) GetStats(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error) {
	return r.getStats(ctx, userID, false)
}

// GetStatsForUpdate retrieves a user's vouch stats and locks the row
func (r *VouchRepository) GetStatsForUpdate(ctx context.Context, userID uuid.UUID) (*models.VouchStats, error) {
	return r.getStats(ctx, userID, true)
}

// CreateStats inserts stats, returning false if the user already has a row
func (r *VouchRepository) CreateStats(ctx context.Context, stats *models.VouchStats) (bool, error) {
	query := `
		INSERT INTO vouch_stats (user_id, budget, base_budget, points_per_friend, total_allocated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		stats.UserID,
		stats.Budget,
		stats.BaseBudget,
		stats.PointsPerFriend,
		stats.TotalAllocated,
	).Scan(&stats.CreatedAt, &stats.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create vouch stats: %w", err)
	}
	return true, nil
}

// UpdateStats persists budget and total allocated
func (r *VouchRepository) UpdateStats(ctx context.Context, stats *models.VouchStats) error {
	query := `
		UPDATE vouch_stats
		SET budget = $2, total_allocated = $3, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, stats.UserID, stats.Budget, stats.TotalAllocated).Scan(&stats.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update vouch stats: %w", err)
	}
	return nil
}

// GetReputationScore averages the points of active vouches the user has received
func (r *VouchRepository) GetReputationScore(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(ROUND(AVG(points), 2), 0)::text
		FROM vouches
		WHERE vouchee_id = $1 AND points > 0
	`

	var score string
	if err := r.q.QueryRow(ctx, query, userID).Scan(&score); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get reputation score: %w", err)
	}
	return decimal.NewFromString(score)
}

// GetVouch retrieves the vouch for a (voucher, vouchee) pair
func (r *VouchRepository) GetVouch(ctx context.Context, voucherID, voucheeID uuid.UUID) (*models.Vouch, error) {
	query := `SELECT ` + vouchColumns + ` FROM vouches WHERE voucher_id = $1 AND vouchee_id = $2`

	v, err := scanVouch(r.q.QueryRow(ctx, query, voucherID, voucheeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vouch: %w", err)
	}
	return v, nil
}

// UpsertVouch creates or updates the single vouch for a pair
func (r *VouchRepository) UpsertVouch(ctx context.Context, vouch *models.Vouch) error {
	query := `
		INSERT INTO vouches (voucher_id, vouchee_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (voucher_id, vouchee_id)
		DO UPDATE SET points = EXCLUDED.points, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, vouch.VoucherID, vouch.VoucheeID, vouch.Points).
		Scan(&vouch.ID, &vouch.CreatedAt, &vouch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert vouch: %w", err)
	}
	return nil
}

func (r *VouchRepository) listVouches(ctx context.Context, query string, userID uuid.UUID) ([]*models.Vouch, error) {
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vouches: %w", err)
	}
	defer rows.Close()

	var vouches []*models.Vouch
	for rows.Next() {
		v, err := scanVouch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vouch: %w", err)
		}
		vouches = append(vouches, v)
	}
	return vouches, rows.Err()
}

// GetVouchersOf returns active vouches received by a user in a stable order
func (r *VouchRepository) GetVouchersOf(ctx context.Context, voucheeID uuid.UUID) ([]*models.Vouch, error) {
	return r.listVouches(ctx, `
		SELECT `+vouchColumns+`
		FROM vouches
		WHERE vouchee_id = $1 AND points > 0
		ORDER BY created_at, id
	`, voucheeID)
}

// ListGiven returns the vouches a user has given
func (r *VouchRepository) ListGiven(ctx context.Context, voucherID uuid.UUID) ([]*models.Vouch, error) {
	return r.listVouches(ctx, `
		SELECT `+vouchColumns+`
		FROM vouches
		WHERE voucher_id = $1
		ORDER BY updated_at DESC
	`, voucherID)
}
