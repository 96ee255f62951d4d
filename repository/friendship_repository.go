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

// FriendshipRepository implements the FriendshipRepository interface
type FriendshipRepository struct {
	q queryable
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *database.DB) *FriendshipRepository {
	return &FriendshipRepository{q: db.Pool}
}

func newFriendshipRepositoryWithTx(tx queryable) *FriendshipRepository {
	return &FriendshipRepository{q: tx}
}

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, responded_at`

func scanFriendship(row pgx.Row) (*models.Friendship, error) {
	var f models.Friendship
	err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.RespondedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a friend request
func (r *FriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	query := `
		INSERT INTO friendships (requester_id, addressee_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, friendship.RequesterID, friendship.AddresseeID, friendship.Status).
		Scan(&friendship.ID, &friendship.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: friendship already exists", service.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// GetByID retrieves a friendship by ID
func (r *FriendshipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a friendship and locks its row
func (r *FriendshipRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	return r.getByID(ctx, id, true)
}

func (r *FriendshipRepository) getByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	f, err := scanFriendship(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship %s: %w", id, err)
	}
	return f, nil
}

// GetBetween retrieves the friendship between two users regardless of direction
func (r *FriendshipRepository) GetBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`

	f, err := scanFriendship(r.q.QueryRow(ctx, query, userA, userB))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return f, nil
}

// UpdateStatus records the addressee's response. Only a pending request can be answered.
func (r *FriendshipRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.FriendshipStatus) error {
	query := `
		UPDATE friendships
		SET status = $2, responded_at = NOW()
		WHERE id = $1 AND status = $3
	`

	tag, err := r.q.Exec(ctx, query, id, status, models.FriendshipStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update friendship: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM friendships WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: friendship %s", service.ErrNotFound, id)
	}
	return fmt.Errorf("%w: friendship %s already answered", service.ErrConflict, id)
}

// Delete removes a friendship row
func (r *FriendshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	return nil
}

// AreFriends reports whether the pair has an accepted friendship
func (r *FriendshipRepository) AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE status = 'accepted'
			  AND ((requester_id = $1 AND addressee_id = $2)
			    OR (requester_id = $2 AND addressee_id = $1))
		)
	`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

// CountAccepted returns the number of accepted friendships of a user
func (r *FriendshipRepository) CountAccepted(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM friendships
		WHERE status = 'accepted' AND (requester_id = $1 OR addressee_id = $1)
	`

	var count int
	if err := r.q.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}
	return count, nil
}

// ListFriends returns the accepted friends of a user ordered by name
func (r *FriendshipRepository) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.display_name, u.wallet_address, u.created_at, u.updated_at
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		WHERE f.status = 'accepted' AND (f.requester_id = $1 OR f.addressee_id = $1)
		ORDER BY u.display_name, u.id
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, user)
	}
	return friends, rows.Err()
}

// ListPendingForUser returns pending requests addressed to the user, newest first
func (r *FriendshipRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE addressee_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, f)
	}
	return requests, rows.Err()
}
