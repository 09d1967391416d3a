package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/domain"
)

func TestUserRefUnmarshal(t *testing.T) {
	t.Run("BareID", func(t *testing.T) {
		var ref domain.UserRef
		require.NoError(t, json.Unmarshal([]byte(`"u1"`), &ref))
		assert.Equal(t, "u1", ref.ID)
		assert.True(t, ref.Is("u1"))
	})

	t.Run("EmbeddedObject", func(t *testing.T) {
		var ref domain.UserRef
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","username":"amy","profileImage":"amy.png"}`), &ref))
		assert.Equal(t, "u1", ref.ID)
		assert.Equal(t, "amy", ref.Username)
		assert.True(t, ref.Is("u1"))
	})

	t.Run("ObjectWithPlainIDKey", func(t *testing.T) {
		var ref domain.UserRef
		require.NoError(t, json.Unmarshal([]byte(`{"id":"u2"}`), &ref))
		assert.Equal(t, "u2", ref.ID)
	})

	t.Run("BothShapesMatchSamePartner", func(t *testing.T) {
		var bare, embedded domain.Message
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"m1","from":"u1","to":"u2","text":"hi"}`), &bare))
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"m2","from":{"_id":"u1","username":"amy"},"to":"u2","text":"yo"}`), &embedded))
		assert.True(t, bare.From.Is("u1"))
		assert.True(t, embedded.From.Is("u1"))
	})
}

func TestUserRefMarshal(t *testing.T) {
	t.Run("BareIDRoundTrip", func(t *testing.T) {
		b, err := json.Marshal(domain.Ref("u1"))
		require.NoError(t, err)
		assert.JSONEq(t, `"u1"`, string(b))
	})

	t.Run("ObjectWhenPopulated", func(t *testing.T) {
		b, err := json.Marshal(domain.UserRef{ID: "u1", Username: "amy"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"_id":"u1","username":"amy"}`, string(b))
	})
}

func TestTempIDs(t *testing.T) {
	id := domain.NewTempID()
	assert.True(t, domain.IsTempID(id))
	assert.False(t, domain.IsTempID("m1"))
	assert.NotEqual(t, id, domain.NewTempID())
}
