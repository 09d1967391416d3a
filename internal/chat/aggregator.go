// Package chat implements the client-side direct-messaging core: the
// conversation list aggregation, the open-conversation message store, the
// unread tracker, and the message-request gate, wired together by Session.
package chat

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"chatcore/internal/domain"
)

// usernameCollator orders usernames case-insensitively and locale-aware.
var usernameCollator = collate.New(language.Und, collate.Loose)

// BuildPartnerList merges the four sources of potential conversation
// partners into one de-duplicated, ordered list.
//
// Sources are concatenated in priority order: friends, people the local
// user has messaged, people who messaged the local user, then the server's
// authoritative chat-partner list. The first occurrence of an id wins
// outright; later duplicates are dropped, not merged field by field. Any id
// with a pending message request is excluded. Partners with a known
// last-message time sort first, newest first; the rest follow ordered by
// username.
//
// The function is pure: it must be re-invoked whenever any input changes.
func BuildPartnerList(
	friends, outgoing, incoming []domain.User,
	backend []domain.Partner,
	requestIDs map[string]struct{},
) []domain.Partner {
	merged := make([]domain.Partner, 0, len(friends)+len(outgoing)+len(incoming)+len(backend))
	seen := make(map[string]struct{})

	add := func(p domain.Partner) {
		if p.ID == "" {
			return
		}
		if _, dup := seen[p.ID]; dup {
			return
		}
		if _, pending := requestIDs[p.ID]; pending {
			return
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}

	for _, u := range friends {
		add(domain.Partner{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage, IsFriend: true})
	}
	for _, u := range outgoing {
		add(domain.Partner{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage})
	}
	for _, u := range incoming {
		add(domain.Partner{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage})
	}
	for _, p := range backend {
		add(domain.Partner{
			ID:            p.ID,
			Username:      p.Username,
			ProfileImage:  p.ProfileImage,
			LastMessageAt: p.LastMessageAt,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			return a.LastMessageAt.After(*b.LastMessageAt)
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		default:
			return usernameCollator.CompareString(a.Username, b.Username) < 0
		}
	})

	return merged
}
