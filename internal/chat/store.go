package chat

import (
	"sync"
	"time"

	"chatcore/internal/domain"
)

// Store holds the in-memory message sequence for the currently open
// conversation. It is the single writer of that sequence; the realtime
// channel and REST completions both dispatch into it.
//
// History loads replace the sequence wholesale rather than patching it,
// so applying the same load twice, or a socket update after a load that
// already contained the message, never duplicates anything.
type Store struct {
	mu        sync.Mutex
	partnerID string
	messages  []domain.Message
}

func NewStore() *Store {
	return &Store{}
}

// Open switches the store to a new partner, discarding any messages held
// for the previous one.
func (s *Store) Open(partnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partnerID != partnerID {
		s.messages = nil
	}
	s.partnerID = partnerID
}

// Close clears the open conversation.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partnerID = ""
	s.messages = nil
}

// PartnerID returns the id of the open conversation partner, or "".
func (s *Store) PartnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partnerID
}

// LoadHistory installs a fetched history for partnerID. The load is
// discarded when the open conversation changed while the fetch was in
// flight; the partner id is compared at completion time, not call time.
// Reports whether the history was installed.
func (s *Store) LoadHistory(partnerID string, msgs []domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partnerID != partnerID {
		return false
	}
	s.messages = append([]domain.Message(nil), msgs...)
	return true
}

// AppendOptimistic inserts a locally-sent message with a temporary id at
// the tail, before server confirmation. The next history load replaces it
// with the canonical record (or reconciles it away if the send failed).
func (s *Store) AppendOptimistic(fromID, toID, text string) domain.Message {
	msg := domain.Message{
		ID:        domain.NewTempID(),
		From:      domain.Ref(fromID),
		To:        domain.Ref(toID),
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return msg
}

// DropTemp removes an optimistic entry after a failed send so the failure
// is visible immediately instead of lingering until the next reload.
func (s *Store) DropTemp(id string) {
	if !domain.IsTempID(id) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// ReconcileIncoming applies a realtime newMessage event. The message is
// appended only when either side of it is the open partner; a message whose
// id is already present (a socket echo racing a history re-fetch) is
// dropped. Reports whether the event belonged to the open conversation.
func (s *Store) ReconcileIncoming(msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partnerID == "" {
		return false
	}
	if !msg.From.Is(s.partnerID) && !msg.To.Is(s.partnerID) {
		return false
	}
	for _, m := range s.messages {
		if m.ID == msg.ID {
			return true
		}
	}
	s.messages = append(s.messages, msg)
	return true
}

// Messages returns a copy of the open conversation's message sequence.
func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}
