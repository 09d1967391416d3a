package chat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/chat"
	"chatcore/internal/domain"
)

func user(id, username string) domain.User {
	return domain.User{ID: id, Username: username}
}

func ts(day int) *time.Time {
	t := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestBuildPartnerList(t *testing.T) {
	t.Run("NoDuplicateIDs", func(t *testing.T) {
		friends := []domain.User{user("u1", "amy"), user("u2", "bob")}
		outgoing := []domain.User{user("u2", "bob"), user("u3", "cid")}
		incoming := []domain.User{user("u1", "amy"), user("u4", "dee")}
		backend := []domain.Partner{{ID: "u3", Username: "cid"}, {ID: "u5", Username: "eli"}}

		got := chat.BuildPartnerList(friends, outgoing, incoming, backend, nil)

		seen := make(map[string]struct{})
		for _, p := range got {
			_, dup := seen[p.ID]
			assert.False(t, dup, "duplicate id %s", p.ID)
			seen[p.ID] = struct{}{}
		}
		assert.Len(t, got, 5)
	})

	t.Run("FirstSeenWins", func(t *testing.T) {
		friends := []domain.User{user("u1", "amy")}
		backend := []domain.Partner{{ID: "u1", Username: "amy", LastMessageAt: ts(2)}}

		got := chat.BuildPartnerList(friends, nil, nil, backend, nil)

		require.Len(t, got, 1)
		assert.True(t, got[0].IsFriend)
		// The friend-source entry won outright; the backend entry's
		// timestamp was not merged in.
		assert.Nil(t, got[0].LastMessageAt)
	})

	t.Run("OnlyFriendSourceSetsIsFriend", func(t *testing.T) {
		got := chat.BuildPartnerList(
			[]domain.User{user("u1", "amy")},
			[]domain.User{user("u2", "bob")},
			nil, nil, nil,
		)
		require.Len(t, got, 2)
		byID := map[string]domain.Partner{got[0].ID: got[0], got[1].ID: got[1]}
		assert.True(t, byID["u1"].IsFriend)
		assert.False(t, byID["u2"].IsFriend)
	})

	t.Run("PendingRequestSendersExcluded", func(t *testing.T) {
		friends := []domain.User{user("u1", "amy")}
		backend := []domain.Partner{{ID: "u9", Username: "zed", LastMessageAt: ts(5)}}
		requestIDs := map[string]struct{}{"u9": {}}

		got := chat.BuildPartnerList(friends, nil, nil, backend, requestIDs)

		require.Len(t, got, 1)
		assert.Equal(t, "u1", got[0].ID)
	})

	t.Run("SortOrder", func(t *testing.T) {
		// amy before cid by date desc; bob last with no date.
		backend := []domain.Partner{
			{ID: "1", Username: "bob"},
			{ID: "2", Username: "amy", LastMessageAt: ts(2)},
			{ID: "3", Username: "cid", LastMessageAt: ts(1)},
		}
		got := chat.BuildPartnerList(nil, nil, nil, backend, nil)

		require.Len(t, got, 3)
		assert.Equal(t, []string{"2", "3", "1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("UndatedPartnersSortByUsernameCaseInsensitive", func(t *testing.T) {
		got := chat.BuildPartnerList(
			[]domain.User{user("u1", "Zoe"), user("u2", "ana"), user("u3", "Bob")},
			nil, nil, nil, nil,
		)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"u2", "u3", "u1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("MissingUsernameSortsFirst", func(t *testing.T) {
		got := chat.BuildPartnerList(
			[]domain.User{user("u1", "amy"), user("u2", "")},
			nil, nil, nil, nil,
		)
		require.Len(t, got, 2)
		assert.Equal(t, "u2", got[0].ID)
	})

	t.Run("NilInputs", func(t *testing.T) {
		got := chat.BuildPartnerList(nil, nil, nil, nil, nil)
		assert.Empty(t, got)
	})
}
