package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatcore/internal/domain"
)

type RequestRepo struct {
	db *sql.DB
}

func NewRequestRepo(db *sql.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

var _ domain.RequestRepository = (*RequestRepo)(nil)

// EnsurePending records a pending request unless a row for the pair
// already exists in any status. INSERT OR IGNORE keeps the operation
// idempotent across repeated messages from the same sender.
func (r *RequestRepo) EnsurePending(ctx context.Context, senderID, recipientID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_requests (sender_id, recipient_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, senderID, recipientID, domain.RequestPending, now, now)
	if err != nil {
		return fmt.Errorf("insert message request: %w", err)
	}
	return nil
}

// Status returns the request status for the pair, or "" when no request
// was ever recorded.
func (r *RequestRepo) Status(ctx context.Context, senderID, recipientID string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT status FROM message_requests WHERE sender_id = ? AND recipient_id = ?
	`, senderID, recipientID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get request status: %w", err)
	}
	return status, nil
}

func (r *RequestRepo) ListPending(ctx context.Context, recipientID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.profile_image, u.is_online, u.created_at
		FROM message_requests mr
		JOIN users u ON u.id = mr.sender_id
		WHERE mr.recipient_id = ? AND mr.status = ?
		ORDER BY mr.created_at
	`, recipientID, domain.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("list message requests: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *RequestRepo) SetStatus(ctx context.Context, senderID, recipientID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE message_requests SET status = ?, updated_at = ?
		WHERE sender_id = ? AND recipient_id = ? AND status = ?
	`, status, time.Now().UTC(), senderID, recipientID, domain.RequestPending)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
