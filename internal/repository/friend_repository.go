package repository

import (
	"context"
	"time"

	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
)

type FriendRepository struct {
	db *database.DB
}

func NewFriendRepository(db *database.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

func (r *FriendRepository) Create(ctx context.Context, userID, friendID int64, createdAt time.Time) error {
	const query = `INSERT INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, friendID, createdAt); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *FriendRepository) Exists(ctx context.Context, userID, friendID int64) (bool, error) {
	const query = `SELECT COUNT(*) FROM friendships WHERE user_id = ? AND friend_id = ?`

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), userID, friendID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Linked reports whether candidateID is visible as a friend of userID. With
// symmetric set, an edge in either direction counts.
func (r *FriendRepository) Linked(ctx context.Context, userID, candidateID int64, symmetric bool) (bool, error) {
	if !symmetric {
		return r.Exists(ctx, userID, candidateID)
	}

	const query = `
		SELECT COUNT(*) FROM friendships
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
	`
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), userID, candidateID, candidateID, userID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns the users reachable from userID, ordered by username.
func (r *FriendRepository) List(ctx context.Context, userID int64, symmetric bool) ([]models.Friend, error) {
	query := `
		SELECT u.id, u.username, u.email
		FROM users u
		JOIN friendships f ON u.id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.username
	`
	args := []any{userID}

	if symmetric {
		query = `
			SELECT u.id, u.username, u.email
			FROM users u
			WHERE u.id IN (
				SELECT friend_id FROM friendships WHERE user_id = ?
				UNION
				SELECT user_id FROM friendships WHERE friend_id = ?
			)
			ORDER BY u.username
		`
		args = []any{userID, userID}
	}

	friends := []models.Friend{}
	if err := r.db.SelectContext(ctx, &friends, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return friends, nil
}
