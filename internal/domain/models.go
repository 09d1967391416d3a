package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents an application user as reported by the social-graph API.
type User struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	ProfileImage   string    `json:"profileImage,omitempty"`
	Online         bool      `json:"online"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	HashedPassword string    `json:"-"`
}

// Partner is a conversation partner: a user projection plus messaging
// metadata. IsFriend is derived from friend-graph membership at merge time
// and is never persisted.
type Partner struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	ProfileImage  string     `json:"profileImage,omitempty"`
	IsFriend      bool       `json:"isFriend"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	Unread        int        `json:"unread"`
}

// Reaction is a single emoji reaction on a message. Insertion order is
// significant, so reactions are kept as an ordered slice, never a map.
type Reaction struct {
	Emoji string `json:"emoji"`
	By    string `json:"by"`
}

// Message is a direct message. From and To may arrive from the wire either
// as bare id strings or as embedded user objects; UserRef absorbs both.
type Message struct {
	ID        string     `json:"_id"`
	From      UserRef    `json:"from"`
	To        UserRef    `json:"to"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Edited    bool       `json:"edited,omitempty"`
	Reactions []Reaction `json:"reactions,omitempty"`
}

// Request statuses as stored server-side.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

const tempIDPrefix = "tmp-"

// NewTempID mints a client-local id for an optimistic send. It is replaced
// by the server-assigned id on the next history load.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was minted by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
