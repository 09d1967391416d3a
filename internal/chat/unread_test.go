package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatcore/internal/chat"
)

func TestUnreadTracker(t *testing.T) {
	t.Run("UnknownPartnerReadsZero", func(t *testing.T) {
		tr := chat.NewUnreadTracker()
		assert.Equal(t, 0, tr.Count("nobody"))
	})

	t.Run("ReplaceIsWholesale", func(t *testing.T) {
		tr := chat.NewUnreadTracker()
		tr.Replace(map[string]int{"B": 2, "X": 7})

		// A fresh server map replaces everything; X is gone, not stale.
		tr.Replace(map[string]int{"B": 2, "C": 1})
		assert.Equal(t, 2, tr.Count("B"))
		assert.Equal(t, 1, tr.Count("C"))
		assert.Equal(t, 0, tr.Count("X"))
	})

	t.Run("SnapshotIsACopy", func(t *testing.T) {
		tr := chat.NewUnreadTracker()
		tr.Replace(map[string]int{"B": 2})

		snap := tr.Snapshot()
		snap["B"] = 99
		assert.Equal(t, 2, tr.Count("B"))
	})

	t.Run("ReplaceCopiesInput", func(t *testing.T) {
		tr := chat.NewUnreadTracker()
		in := map[string]int{"B": 2}
		tr.Replace(in)
		in["B"] = 99
		assert.Equal(t, 2, tr.Count("B"))
	})
}
