package chat

import "sync"

// UnreadTracker maps partner id to unread message count. The map is
// regenerated wholesale from the server on every inbound message event
// instead of being patched per event, so client and server counts cannot
// drift across reconnects or missed events. A failed fetch simply leaves
// the previous map in place: the caller only invokes Replace on success.
type UnreadTracker struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewUnreadTracker() *UnreadTracker {
	return &UnreadTracker{counts: make(map[string]int)}
}

// Replace swaps in a fresh server-reported map.
func (t *UnreadTracker) Replace(counts map[string]int) {
	fresh := make(map[string]int, len(counts))
	for id, n := range counts {
		fresh[id] = n
	}
	t.mu.Lock()
	t.counts = fresh
	t.mu.Unlock()
}

// Count returns the unread count for a partner, zero when unknown.
func (t *UnreadTracker) Count(partnerID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counts[partnerID]
}

// Snapshot returns a copy of the current map.
func (t *UnreadTracker) Snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.counts))
	for id, n := range t.counts {
		out[id] = n
	}
	return out
}
