package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"wingman/database"
	"wingman/models"

	"github.com/google/uuid"
)

// VouchHistoryRepository implements the VouchHistoryRepository interface
type VouchHistoryRepository struct {
	q queryable
}

// NewVouchHistoryRepository creates a new vouch history repository
func NewVouchHistoryRepository(db *database.DB) *VouchHistoryRepository {
	return &VouchHistoryRepository{q: db.Pool}
}

// newVouchHistoryRepositoryWithTx creates a new vouch history repository with a transaction
func newVouchHistoryRepositoryWithTx(tx queryable) *VouchHistoryRepository {
	return &VouchHistoryRepository{q: tx}
}

// Record appends a vouch history entry. Rows are never updated or deleted.
func (r *VouchHistoryRepository) Record(ctx context.Context, history *models.VouchHistory) error {
	metadata := history.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal vouch history metadata: %w", err)
	}

	query := `
		INSERT INTO vouch_history
		(user_id, entry_type, delta, budget_after, related_user_id, related_match_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.UserID,
		history.Type,
		history.Delta,
		history.BudgetAfter,
		history.RelatedUserID,
		history.RelatedMatchID,
		metadataJSON,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record vouch history for user %s: %w", history.UserID, err)
	}
	return nil
}

// GetByUser returns vouch history for a user, newest first
func (r *VouchHistoryRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.VouchHistory, error) {
	query := `
		SELECT id, user_id, entry_type, delta, budget_after, related_user_id, related_match_id, metadata, created_at
		FROM vouch_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get vouch history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var histories []*models.VouchHistory
	for rows.Next() {
		var history models.VouchHistory
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&history.UserID,
			&history.Type,
			&history.Delta,
			&history.BudgetAfter,
			&history.RelatedUserID,
			&history.RelatedMatchID,
			&metadataJSON,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vouch history: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal vouch history metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vouch history: %w", err)
	}
	return histories, nil
}
