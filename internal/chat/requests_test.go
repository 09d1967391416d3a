package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/chat"
	"chatcore/internal/domain"
)

func TestRequestGate(t *testing.T) {
	t.Run("OnePendingEntryPerSender", func(t *testing.T) {
		g := chat.NewRequestGate()
		g.Replace([]domain.User{user("u1", "amy"), user("u1", "amy"), user("u2", "bob")})

		assert.Len(t, g.Pending(), 2)
		assert.True(t, g.Contains("u1"))
	})

	t.Run("RemoveOnAcceptOrDecline", func(t *testing.T) {
		g := chat.NewRequestGate()
		g.Replace([]domain.User{user("u1", "amy"), user("u2", "bob")})

		g.Remove("u1")
		assert.False(t, g.Contains("u1"))
		require.Len(t, g.Pending(), 1)
		assert.Equal(t, "u2", g.Pending()[0].ID)

		// Removing an absent sender is a no-op.
		g.Remove("u1")
		assert.Len(t, g.Pending(), 1)
	})

	t.Run("IDSetFeedsTheAggregatorFilter", func(t *testing.T) {
		g := chat.NewRequestGate()
		g.Replace([]domain.User{user("u1", "amy")})

		ids := g.IDSet()
		_, ok := ids["u1"]
		assert.True(t, ok)

		got := chat.BuildPartnerList([]domain.User{user("u1", "amy"), user("u2", "bob")}, nil, nil, nil, ids)
		require.Len(t, got, 1)
		assert.Equal(t, "u2", got[0].ID)
	})
}
