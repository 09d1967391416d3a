package chat

import (
	"context"
	"log"
	"sync"

	"chatcore/internal/domain"
)

// API is the slice of the social backend the messaging core consumes.
// Everything outside it (accounts, uploads, profiles) is someone else's
// problem.
type API interface {
	ListFriends(ctx context.Context) ([]domain.User, error)
	ListChatPartners(ctx context.Context) ([]domain.Partner, error)
	ListMessageRequests(ctx context.Context) ([]domain.User, error)
	AcceptMessageRequest(ctx context.Context, senderID string) error
	DeclineMessageRequest(ctx context.Context, senderID string) error
	GetMessages(ctx context.Context, partnerID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, toID, text string) (*domain.Message, error)
	EditMessage(ctx context.Context, messageID, text string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	ReactToMessage(ctx context.Context, messageID, emoji string) error
	UnreadCounts(ctx context.Context) (map[string]int, error)
}

// Realtime is the live event channel the session listens on. Sending is
// fire-and-forget: the REST call is the persistence path, the socket
// emission only shaves latency off delivery.
type Realtime interface {
	Events() <-chan domain.Message
	SendMessage(fromID, toID, text string)
}

// Session owns the messaging core's state for one logged-in user: the four
// partner sources, the request gate, the unread tracker, and the open
// conversation's message store. All mutation happens on the caller's
// goroutine or the event loop; both funnel through the session mutex, so
// each piece of state has a single effective writer.
type Session struct {
	api    API
	rt     Realtime
	userID string

	store  *Store
	unread *UnreadTracker
	gate   *RequestGate

	mu       sync.Mutex
	friends  []domain.User
	outgoing []domain.User
	incoming []domain.User
	backend  []domain.Partner
	partners []domain.Partner

	onChange func()
}

func NewSession(api API, rt Realtime, userID string) *Session {
	return &Session{
		api:    api,
		rt:     rt,
		userID: userID,
		store:  NewStore(),
		unread: NewUnreadTracker(),
		gate:   NewRequestGate(),
	}
}

// OnChange registers a callback invoked after any state change, for the
// embedding UI to re-render. Must be set before Run.
func (s *Session) OnChange(fn func()) {
	s.onChange = fn
}

// Run consumes realtime events until ctx is cancelled or the channel
// closes. It is meant to be launched on its own goroutine.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.rt.Events():
			if !ok {
				return
			}
			s.handleEvent(ctx, msg)
		}
	}
}

// handleEvent applies an inbound newMessage: the open conversation picks it
// up when it belongs there, and the unread map is refetched wholesale
// regardless of which conversation it was for.
func (s *Session) handleEvent(ctx context.Context, msg domain.Message) {
	s.store.ReconcileIncoming(msg)

	if from := msg.From; from.ID != "" && from.ID != s.userID {
		s.mu.Lock()
		s.incoming = appendUser(s.incoming, domain.User{
			ID:           from.ID,
			Username:     from.Username,
			ProfileImage: from.ProfileImage,
		})
		s.mu.Unlock()
	}

	if counts, err := s.api.UnreadCounts(ctx); err == nil {
		s.unread.Replace(counts)
	} else {
		log.Printf("chat: unread refetch: %v", err)
	}
	if reqs, err := s.api.ListMessageRequests(ctx); err == nil {
		s.gate.Replace(reqs)
	}
	if partners, err := s.api.ListChatPartners(ctx); err == nil {
		s.mu.Lock()
		s.backend = partners
		s.mu.Unlock()
	}

	s.rebuild()
}

// Refresh fetches the partner sources, the pending requests, and the
// unread map. Failed reads keep the previous state; the list degrades to
// stale rather than erroring the whole view.
func (s *Session) Refresh(ctx context.Context) {
	if friends, err := s.api.ListFriends(ctx); err == nil {
		s.mu.Lock()
		s.friends = friends
		s.mu.Unlock()
	} else {
		log.Printf("chat: friends refetch: %v", err)
	}
	if partners, err := s.api.ListChatPartners(ctx); err == nil {
		s.mu.Lock()
		s.backend = partners
		s.mu.Unlock()
	} else {
		log.Printf("chat: chat partners refetch: %v", err)
	}
	if reqs, err := s.api.ListMessageRequests(ctx); err == nil {
		s.gate.Replace(reqs)
	}
	if counts, err := s.api.UnreadCounts(ctx); err == nil {
		s.unread.Replace(counts)
	}
	s.rebuild()
}

// OpenConversation selects a partner and loads its history. A load that
// resolves after the selection moved on is discarded by the store.
func (s *Session) OpenConversation(ctx context.Context, partnerID string) error {
	s.store.Open(partnerID)
	if err := s.reload(ctx, partnerID); err != nil {
		return err
	}
	// History fetch marks the conversation read server-side.
	if counts, err := s.api.UnreadCounts(ctx); err == nil {
		s.unread.Replace(counts)
	}
	s.rebuild()
	return nil
}

// CloseConversation deselects the open partner.
func (s *Session) CloseConversation() {
	s.store.Close()
	s.notify()
}

// Send delivers text to the open partner: optimistic append, REST persist,
// best-effort socket emit, then a history re-fetch that swaps the
// optimistic entry for the canonical record. A failed persist drops the
// optimistic entry so the failure is visible.
func (s *Session) Send(ctx context.Context, text string) error {
	partnerID := s.store.PartnerID()
	if partnerID == "" {
		return domain.ErrInvalidInput
	}
	tmp := s.store.AppendOptimistic(s.userID, partnerID, text)
	s.notify()

	if _, err := s.api.SendMessage(ctx, partnerID, text); err != nil {
		s.store.DropTemp(tmp.ID)
		s.notify()
		return err
	}
	s.rt.SendMessage(s.userID, partnerID, text)

	s.mu.Lock()
	s.outgoing = appendUser(s.outgoing, s.lookupUserLocked(partnerID))
	s.mu.Unlock()

	if err := s.reload(ctx, partnerID); err != nil {
		// Persisted fine; the stale view heals on the next reload.
		log.Printf("chat: history refetch after send: %v", err)
	}
	s.rebuild()
	return nil
}

// Edit replaces a message's text server-side, then re-fetches history
// instead of patching in place: the server copy is the source of truth.
func (s *Session) Edit(ctx context.Context, messageID, text string) error {
	if _, err := s.api.EditMessage(ctx, messageID, text); err != nil {
		return err
	}
	return s.reloadOpen(ctx)
}

// Delete removes a message server-side and re-fetches history.
func (s *Session) Delete(ctx context.Context, messageID string) error {
	if err := s.api.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	return s.reloadOpen(ctx)
}

// React adds an emoji reaction and re-fetches history.
func (s *Session) React(ctx context.Context, messageID, emoji string) error {
	if err := s.api.ReactToMessage(ctx, messageID, emoji); err != nil {
		return err
	}
	return s.reloadOpen(ctx)
}

// Accept promotes a pending sender into the normal conversation list. If
// that conversation is open it stays open.
func (s *Session) Accept(ctx context.Context, senderID string) error {
	if err := s.api.AcceptMessageRequest(ctx, senderID); err != nil {
		return err
	}
	s.gate.Remove(senderID)
	s.rebuild()
	return nil
}

// Decline removes a pending sender; an open conversation with them is
// closed.
func (s *Session) Decline(ctx context.Context, senderID string) error {
	if err := s.api.DeclineMessageRequest(ctx, senderID); err != nil {
		return err
	}
	s.gate.Remove(senderID)
	if s.store.PartnerID() == senderID {
		s.store.Close()
	}
	s.rebuild()
	return nil
}

// Partners returns the current merged conversation list with unread counts
// applied.
func (s *Session) Partners() []domain.Partner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Partner(nil), s.partners...)
}

// Messages returns the open conversation's messages.
func (s *Session) Messages() []domain.Message {
	return s.store.Messages()
}

// Requests returns the pending message requests.
func (s *Session) Requests() []domain.User {
	return s.gate.Pending()
}

// Unread returns the unread count for a partner.
func (s *Session) Unread(partnerID string) int {
	return s.unread.Count(partnerID)
}

// OpenPartnerID returns the id of the open conversation partner, or "".
func (s *Session) OpenPartnerID() string {
	return s.store.PartnerID()
}

func (s *Session) reloadOpen(ctx context.Context) error {
	partnerID := s.store.PartnerID()
	if partnerID == "" {
		return nil
	}
	if err := s.reload(ctx, partnerID); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Session) reload(ctx context.Context, partnerID string) error {
	msgs, err := s.api.GetMessages(ctx, partnerID)
	if err != nil {
		return err
	}
	s.store.LoadHistory(partnerID, msgs)
	return nil
}

// rebuild recomputes the merged partner list and notifies the UI.
func (s *Session) rebuild() {
	ids := s.gate.IDSet()
	s.mu.Lock()
	s.partners = BuildPartnerList(s.friends, s.outgoing, s.incoming, s.backend, ids)
	for i := range s.partners {
		s.partners[i].Unread = s.unread.Count(s.partners[i].ID)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// lookupUserLocked resolves an id against the lists already in memory, so
// session-local source entries keep their username for sorting.
func (s *Session) lookupUserLocked(id string) domain.User {
	for _, u := range s.friends {
		if u.ID == id {
			return u
		}
	}
	for _, p := range s.backend {
		if p.ID == id {
			return domain.User{ID: p.ID, Username: p.Username, ProfileImage: p.ProfileImage}
		}
	}
	for _, p := range s.partners {
		if p.ID == id {
			return domain.User{ID: p.ID, Username: p.Username, ProfileImage: p.ProfileImage}
		}
	}
	return domain.User{ID: id}
}

func appendUser(list []domain.User, u domain.User) []domain.User {
	if u.ID == "" {
		return list
	}
	for _, have := range list {
		if have.ID == u.ID {
			return list
		}
	}
	return append(list, u)
}
