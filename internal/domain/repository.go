package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Search(ctx context.Context, query string, limit int) ([]*User, error)
	SetOnlineStatus(ctx context.Context, id string, online bool) error
}

// FriendRepository defines persistence operations for the friend graph.
type FriendRepository interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]*User, error)
	CreateRequest(ctx context.Context, fromID, toID string) error
	ListRequests(ctx context.Context, userID string) ([]*User, error)
	AcceptRequest(ctx context.Context, fromID, toID string) error
}

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListBetween(ctx context.Context, a, b string) ([]*Message, error)
	LatestFrom(ctx context.Context, fromID, toID string) (*Message, error)
	UpdateText(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	AddReaction(ctx context.Context, messageID string, r Reaction) error
	ListPartners(ctx context.Context, userID string) ([]*Partner, error)
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)
	MarkRead(ctx context.Context, userID, partnerID string) error
}

// RequestRepository defines persistence for the message-request gate.
type RequestRepository interface {
	// EnsurePending records a pending request from sender to recipient
	// unless a row for the pair already exists in any status.
	EnsurePending(ctx context.Context, senderID, recipientID string) error
	Status(ctx context.Context, senderID, recipientID string) (string, error)
	ListPending(ctx context.Context, recipientID string) ([]*User, error)
	SetStatus(ctx context.Context, senderID, recipientID, status string) error
}
