package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatcore/internal/domain"
	"chatcore/internal/security"
)

type MessageRepo struct {
	db  *sql.DB
	enc *security.Encryptor
}

// NewMessageRepo builds the message store. A nil encryptor stores text as
// plaintext; with one set, text is sealed on write and opened on read, and
// nothing above this layer ever sees ciphertext.
func NewMessageRepo(db *sql.DB, enc *security.Encryptor) *MessageRepo {
	return &MessageRepo{db: db, enc: enc}
}

func (r *MessageRepo) sealText(plain string) (string, error) {
	if r.enc == nil {
		return plain, nil
	}
	return r.enc.Encrypt(plain)
}

func (r *MessageRepo) openText(stored string) (string, error) {
	if r.enc == nil {
		return stored, nil
	}
	return r.enc.Decrypt(stored)
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	text, err := r.sealText(m.Text)
	if err != nil {
		return fmt.Errorf("seal message: %w", err)
	}
	query := `
		INSERT INTO messages (id, from_id, to_id, text, created_at, edited)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		m.ID,
		m.From.ID,
		m.To.ID,
		text,
		m.CreatedAt,
		m.Edited,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT id, from_id, to_id, text, created_at, edited
		FROM messages
		WHERE id = ?
	`
	m, err := r.scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachReactions(ctx, []*domain.Message{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepo) ListBetween(ctx context.Context, a, b string) ([]*domain.Message, error) {
	query := `
		SELECT id, from_id, to_id, text, created_at, edited
		FROM messages
		WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachReactions(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// LatestFrom returns the newest message sent from one user to another.
func (r *MessageRepo) LatestFrom(ctx context.Context, fromID, toID string) (*domain.Message, error) {
	query := `
		SELECT id, from_id, to_id, text, created_at, edited
		FROM messages
		WHERE from_id = ? AND to_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`
	return r.scanMessage(r.db.QueryRowContext(ctx, query, fromID, toID))
}

func (r *MessageRepo) UpdateText(ctx context.Context, id, text string) error {
	sealed, err := r.sealText(text)
	if err != nil {
		return fmt.Errorf("seal message: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET text = ?, edited = 1 WHERE id = ?
	`, sealed, id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) AddReaction(ctx context.Context, messageID string, reaction domain.Reaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reactions (message_id, emoji, by_id) VALUES (?, ?, ?)
	`, messageID, reaction.Emoji, reaction.By)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

// ListPartners returns every user the given user has exchanged messages
// with, newest correspondence first.
func (r *MessageRepo) ListPartners(ctx context.Context, userID string) ([]*domain.Partner, error) {
	query := `
		SELECT u.id, u.username, u.profile_image, MAX(m.created_at) AS last_message_at
		FROM messages m
		JOIN users u ON u.id = CASE WHEN m.from_id = ? THEN m.to_id ELSE m.from_id END
		WHERE m.from_id = ? OR m.to_id = ?
		GROUP BY u.id, u.username, u.profile_image
		ORDER BY last_message_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat partners: %w", err)
	}
	defer rows.Close()

	var res []*domain.Partner
	for rows.Next() {
		p := &domain.Partner{}
		var last time.Time
		if err := rows.Scan(&p.ID, &p.Username, &p.ProfileImage, &last); err != nil {
			return nil, fmt.Errorf("scan chat partner: %w", err)
		}
		p.LastMessageAt = &last
		res = append(res, p)
	}
	return res, rows.Err()
}

// UnreadCounts returns, per partner, how many of their messages to the
// user postdate the user's read watermark for that partner.
func (r *MessageRepo) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	query := `
		SELECT m.from_id, COUNT(*)
		FROM messages m
		LEFT JOIN read_marks rm ON rm.user_id = ? AND rm.partner_id = m.from_id
		WHERE m.to_id = ? AND (rm.last_read_at IS NULL OR m.created_at > rm.last_read_at)
		GROUP BY m.from_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var partnerID string
		var n int
		if err := rows.Scan(&partnerID, &n); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[partnerID] = n
	}
	return counts, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, userID, partnerID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO read_marks (user_id, partner_id, last_read_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, partner_id) DO UPDATE SET last_read_at = excluded.last_read_at
	`, userID, partnerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *MessageRepo) scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var fromID, toID string
	err := row.Scan(&m.ID, &fromID, &toID, &m.Text, &m.CreatedAt, &m.Edited)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if m.Text, err = r.openText(m.Text); err != nil {
		return nil, fmt.Errorf("open message %s: %w", m.ID, err)
	}
	m.From = domain.Ref(fromID)
	m.To = domain.Ref(toID)
	return m, nil
}

// attachReactions loads reactions for the given messages in insertion
// order.
func (r *MessageRepo) attachReactions(ctx context.Context, msgs []*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Message, len(msgs))
	args := make([]any, len(msgs))
	for i, m := range msgs {
		byID[m.ID] = m
		args[i] = m.ID
	}

	query := `
		SELECT message_id, emoji, by_id
		FROM reactions
		WHERE message_id IN (?` + strings.Repeat(",?", len(msgs)-1) + `)
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msgID string
		var reaction domain.Reaction
		if err := rows.Scan(&msgID, &reaction.Emoji, &reaction.By); err != nil {
			return fmt.Errorf("scan reaction: %w", err)
		}
		if m := byID[msgID]; m != nil {
			m.Reactions = append(m.Reactions, reaction)
		}
	}
	return rows.Err()
}
