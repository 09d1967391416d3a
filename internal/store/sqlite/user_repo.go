package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chatcore/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, hashed_password, profile_image, is_online, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.Username,
		u.HashedPassword,
		u.ProfileImage,
		u.Online,
		u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, `id = ?`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, `username = ?`, username)
}

func (r *UserRepo) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `
		SELECT id, username, hashed_password, profile_image, is_online, created_at
		FROM users
		WHERE ` + where
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.HashedPassword,
		&u.ProfileImage,
		&u.Online,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, profile_image, is_online, created_at
		FROM users
		WHERE username LIKE ?
		ORDER BY username
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

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

func (r *UserRepo) SetOnlineStatus(ctx context.Context, id string, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online = ? WHERE id = ?`, online, id)
	if err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}
