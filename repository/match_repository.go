package repository

import (
	"context"
	"errors"
	"fmt"

	"wingman/database"
	"wingman/models"
	"wingman/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `id, matchmaker_id, user_a_id, user_b_id, user_a_accepted, user_b_accepted,
	status, market_id, date_success, created_at, updated_at, completed_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID,
		&m.MatchmakerID,
		&m.UserAID,
		&m.UserBID,
		&m.UserAAccepted,
		&m.UserBAccepted,
		&m.Status,
		&m.MarketID,
		&m.DateSuccess,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a proposed match
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (matchmaker_id, user_a_id, user_b_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, match.MatchmakerID, match.UserAID, match.UserBID, match.Status).
		Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *MatchRepository) getByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	m, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a match and locks its row
func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return r.getByID(ctx, id, true)
}

// Update persists the mutable match fields
func (r *MatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches
		SET user_a_accepted = $2,
		    user_b_accepted = $3,
		    status = $4,
		    market_id = $5,
		    date_success = $6,
		    completed_at = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		match.ID,
		match.UserAAccepted,
		match.UserBAccepted,
		match.Status,
		match.MarketID,
		match.DateSuccess,
		match.CompletedAt,
	).Scan(&match.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: match %s", service.ErrNotFound, match.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return nil
}

// ListForUser returns matches the user proposed or takes part in, newest first
func (r *MatchRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE matchmaker_id = $1 OR user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
