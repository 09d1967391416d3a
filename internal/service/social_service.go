package service

import (
	"context"
	"fmt"
	"strings"

	"chatcore/internal/domain"
)

const searchLimit = 20

// SocialService exposes the friend graph: the messaging core consumes the
// friend list as the highest-priority source of conversation partners.
type SocialService struct {
	users   domain.UserRepository
	friends domain.FriendRepository
}

func NewSocialService(users domain.UserRepository, friends domain.FriendRepository) *SocialService {
	return &SocialService{users: users, friends: friends}
}

func (s *SocialService) ListFriends(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.friends.ListFriends(ctx, userID)
}

func (s *SocialService) ListFriendRequests(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.friends.ListRequests(ctx, userID)
}

func (s *SocialService) SendFriendRequest(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("cannot befriend yourself: %w", domain.ErrInvalidInput)
	}
	if _, err := s.users.GetByID(ctx, toID); err != nil {
		return err
	}
	already, err := s.friends.AreFriends(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if already {
		return domain.ErrConflict
	}
	return s.friends.CreateRequest(ctx, fromID, toID)
}

func (s *SocialService) AcceptFriendRequest(ctx context.Context, userID, senderID string) error {
	return s.friends.AcceptRequest(ctx, senderID, userID)
}

func (s *SocialService) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.users.Search(ctx, query, searchLimit)
}
