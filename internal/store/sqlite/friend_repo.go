package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatcore/internal/domain"
)

type FriendRepo struct {
	db *sql.DB
}

func NewFriendRepo(db *sql.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

var _ domain.FriendRepository = (*FriendRepo)(nil)

func (r *FriendRepo) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM friendships WHERE user_id = ? AND friend_id = ?
	`, a, b).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return n > 0, nil
}

func (r *FriendRepo) ListFriends(ctx context.Context, userID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.profile_image, u.is_online, u.created_at
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.username
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *FriendRepo) CreateRequest(ctx context.Context, fromID, toID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO friend_requests (from_id, to_id, created_at) VALUES (?, ?, ?)
	`, fromID, toID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

func (r *FriendRepo) ListRequests(ctx context.Context, userID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.profile_image, u.is_online, u.created_at
		FROM friend_requests fr
		JOIN users u ON u.id = fr.from_id
		WHERE fr.to_id = ?
		ORDER BY fr.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

// AcceptRequest removes the pending request and records the friendship in
// both directions.
func (r *FriendRepo) AcceptRequest(ctx context.Context, fromID, toID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM friend_requests WHERE from_id = ? AND to_id = ?
	`, fromID, toID)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	now := time.Now().UTC()
	for _, pair := range [][2]string{{fromID, toID}, {toID, fromID}} {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?)
		`, pair[0], pair[1], now); err != nil {
			return fmt.Errorf("insert friendship: %w", err)
		}
	}

	return tx.Commit()
}

func scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	var res []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.ProfileImage, &u.Online, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
