package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatcore/internal/domain"
	"chatcore/internal/security"
)

type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hasher *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hasher *security.PasswordHasher) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher}
}

type RegisterInput struct {
	Username string
	Password string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	if len(in.Username) < 3 {
		return nil, "", fmt.Errorf("username must be at least 3 characters: %w", domain.ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, "", fmt.Errorf("password must be at least 8 characters: %w", domain.ErrInvalidInput)
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, "", domain.ErrConflict
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       in.Username,
		HashedPassword: hashed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create token: %w", err)
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", domain.ErrUnauthorized
	}
	if err != nil {
		return nil, "", err
	}
	if err := s.hasher.Verify(password, user.HashedPassword); err != nil {
		return nil, "", domain.ErrUnauthorized
	}

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create token: %w", err)
	}
	return user, token, nil
}
