package chat

import (
	"sync"

	"chatcore/internal/domain"
)

// RequestGate tracks pending message requests: inbound conversations from
// non-friends that are held out of the main conversation list until the
// local user accepts or declines them. A sender has at most one pending
// entry at a time.
type RequestGate struct {
	mu      sync.Mutex
	pending []domain.User
	index   map[string]struct{}
}

func NewRequestGate() *RequestGate {
	return &RequestGate{index: make(map[string]struct{})}
}

// Replace swaps in the server-reported pending sender list.
func (g *RequestGate) Replace(senders []domain.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
	g.index = make(map[string]struct{}, len(senders))
	for _, u := range senders {
		if _, dup := g.index[u.ID]; dup {
			continue
		}
		g.index[u.ID] = struct{}{}
		g.pending = append(g.pending, u)
	}
}

// Remove drops a sender after an accept or decline.
func (g *RequestGate) Remove(senderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.index[senderID]; !ok {
		return
	}
	delete(g.index, senderID)
	for i, u := range g.pending {
		if u.ID == senderID {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			break
		}
	}
}

// Contains reports whether the sender has a pending request.
func (g *RequestGate) Contains(senderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.index[senderID]
	return ok
}

// IDSet returns the pending sender ids for the aggregator's exclusion
// filter.
func (g *RequestGate) IDSet() map[string]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]struct{}, len(g.index))
	for id := range g.index {
		out[id] = struct{}{}
	}
	return out
}

// Pending returns a copy of the pending senders in arrival order.
func (g *RequestGate) Pending() []domain.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.User(nil), g.pending...)
}
