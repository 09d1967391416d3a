package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatcore/internal/domain"
)

const maxMessageLen = 5000

// MessageService implements the server side of the messaging protocol:
// persistence, the message-request gate, and unread accounting.
type MessageService struct {
	users    domain.UserRepository
	friends  domain.FriendRepository
	messages domain.MessageRepository
	requests domain.RequestRepository
}

func NewMessageService(
	users domain.UserRepository,
	friends domain.FriendRepository,
	messages domain.MessageRepository,
	requests domain.RequestRepository,
) *MessageService {
	return &MessageService{
		users:    users,
		friends:  friends,
		messages: messages,
		requests: requests,
	}
}

// Send persists a message. When the sender is not a friend of the
// recipient, a pending message request is recorded for the pair; repeated
// sends never create a second one.
func (s *MessageService) Send(ctx context.Context, senderID, toID, text string) (*domain.Message, error) {
	if text == "" {
		return nil, fmt.Errorf("message text cannot be empty: %w", domain.ErrInvalidInput)
	}
	if len([]rune(text)) > maxMessageLen {
		return nil, fmt.Errorf("message text exceeds %d characters: %w", maxMessageLen, domain.ErrInvalidInput)
	}
	if senderID == toID {
		return nil, fmt.Errorf("cannot message yourself: %w", domain.ErrInvalidInput)
	}
	if _, err := s.users.GetByID(ctx, toID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		From:      domain.Ref(senderID),
		To:        domain.Ref(toID),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	areFriends, err := s.friends.AreFriends(ctx, senderID, toID)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if !areFriends {
		status, err := s.requests.Status(ctx, senderID, toID)
		if err != nil {
			return nil, err
		}
		// Only a never-before-seen pair opens a request; accepted and
		// declined pairs keep their recorded decision.
		if status == "" {
			if err := s.requests.EnsurePending(ctx, senderID, toID); err != nil {
				return nil, err
			}
		}
	}

	return msg, nil
}

// LatestFrom returns the newest persisted message from one user to
// another. The socket relay uses it to re-deliver the canonical record
// for a sendMessage event whose REST persist already landed.
func (s *MessageService) LatestFrom(ctx context.Context, fromID, toID string) (*domain.Message, error) {
	return s.messages.LatestFrom(ctx, fromID, toID)
}

// History returns the full conversation between the user and a partner in
// chronological order and advances the user's read watermark for that
// partner: fetching history is what marks a conversation read.
func (s *MessageService) History(ctx context.Context, userID, partnerID string) ([]*domain.Message, error) {
	if _, err := s.users.GetByID(ctx, partnerID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBetween(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkRead(ctx, userID, partnerID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Edit replaces a message's text. Only the sender may edit.
func (s *MessageService) Edit(ctx context.Context, callerID, messageID, text string) (*domain.Message, error) {
	if text == "" {
		return nil, fmt.Errorf("message text cannot be empty: %w", domain.ErrInvalidInput)
	}
	if len([]rune(text)) > maxMessageLen {
		return nil, fmt.Errorf("message text exceeds %d characters: %w", maxMessageLen, domain.ErrInvalidInput)
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.From.Is(callerID) {
		return nil, domain.ErrForbidden
	}
	if err := s.messages.UpdateText(ctx, messageID, text); err != nil {
		return nil, err
	}
	return s.messages.GetByID(ctx, messageID)
}

// Delete removes a message outright; no tombstone is kept. Only the
// sender may delete.
func (s *MessageService) Delete(ctx context.Context, callerID, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.From.Is(callerID) {
		return domain.ErrForbidden
	}
	return s.messages.Delete(ctx, messageID)
}

// React appends an emoji reaction. Any user may react; insertion order is
// preserved.
func (s *MessageService) React(ctx context.Context, callerID, messageID, emoji string) (*domain.Message, error) {
	if emoji == "" {
		return nil, fmt.Errorf("emoji is required: %w", domain.ErrInvalidInput)
	}
	if _, err := s.messages.GetByID(ctx, messageID); err != nil {
		return nil, err
	}
	if err := s.messages.AddReaction(ctx, messageID, domain.Reaction{Emoji: emoji, By: callerID}); err != nil {
		return nil, err
	}
	return s.messages.GetByID(ctx, messageID)
}

// Partners returns the server's authoritative list of prior chat partners
// with last-message timestamps, newest first.
func (s *MessageService) Partners(ctx context.Context, userID string) ([]*domain.Partner, error) {
	return s.messages.ListPartners(ctx, userID)
}

// UnreadCounts returns the per-partner unread map for the user.
func (s *MessageService) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	return s.messages.UnreadCounts(ctx, userID)
}

// PendingRequests returns the users whose messages are held in the
// request gate for the given recipient.
func (s *MessageService) PendingRequests(ctx context.Context, recipientID string) ([]*domain.User, error) {
	return s.requests.ListPending(ctx, recipientID)
}

// AcceptRequest promotes a pending sender; their conversation joins the
// recipient's normal list on the next partner fetch.
func (s *MessageService) AcceptRequest(ctx context.Context, recipientID, senderID string) error {
	return s.requests.SetStatus(ctx, senderID, recipientID, domain.RequestAccepted)
}

// DeclineRequest dismisses a pending sender.
func (s *MessageService) DeclineRequest(ctx context.Context, recipientID, senderID string) error {
	return s.requests.SetStatus(ctx, senderID, recipientID, domain.RequestDeclined)
}
