package httpserver_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/api"
	"chatcore/internal/config"
	"chatcore/internal/domain"
	"chatcore/internal/httpserver"
	"chatcore/internal/realtime"
	"chatcore/internal/security"
	"chatcore/internal/store/sqlite"
	"chatcore/internal/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	cfg := &config.Config{
		AppName:     "chatcore-test",
		Env:         "test",
		JWTSecret:   "test-secret",
		CORSOrigins: []string{"http://localhost:3000"},
	}
	tokens := security.NewTokenService(cfg.JWTSecret, time.Hour)
	hasher := security.NewPasswordHasher(4)
	hub := ws.NewHub()

	// At-rest encryption is on so every message round-trip in these tests
	// crosses the seal/open path.
	encryptor, err := security.NewEncryptor([]byte("test-message-key"))
	require.NoError(t, err)

	srv := httptest.NewServer(httpserver.NewRouter(cfg, db, hub, tokens, hasher, encryptor))
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, srv *httptest.Server, username string) (*api.Client, *api.AuthResponse) {
	t.Helper()
	client := api.New(srv.URL)
	auth, err := client.Register(context.Background(), username, "Password1!")
	require.NoError(t, err)
	return client, auth
}

func wsAddr(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// dialRealtime connects a realtime channel and gives the server a beat to
// process the login event, so a broadcast right after cannot race the
// registration.
func dialRealtime(t *testing.T, srv *httptest.Server, auth *api.AuthResponse) *realtime.Channel {
	t.Helper()
	ch, err := realtime.Dial(context.Background(), wsAddr(srv), auth.Token, auth.User.ID)
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	time.Sleep(100 * time.Millisecond)
	return ch
}

func waitForMessage(t *testing.T, ch <-chan domain.Message) domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for realtime message")
		return domain.Message{}
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	client, auth := register(t, srv, "alice")
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "alice", auth.User.Username)

	_, err := client.Login(ctx, "alice", "Password1!")
	assert.NoError(t, err)

	_, err = client.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = api.New(srv.URL).Register(ctx, "alice", "Password1!")
	assert.ErrorIs(t, err, domain.ErrConflict)

	// No token, no friend list.
	_, err = api.New(srv.URL).ListFriends(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMessagingEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	alice, aliceAuth := register(t, srv, "alice")
	bob, bobAuth := register(t, srv, "bob")

	// Befriend the two so the request gate stays out of this test.
	require.NoError(t, alice.SendFriendRequest(ctx, bobAuth.User.ID))
	require.NoError(t, bob.AcceptFriendRequest(ctx, aliceAuth.User.ID))

	friends, err := alice.ListFriends(ctx)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].Username)

	// Bob listens on the realtime channel.
	bobCh := dialRealtime(t, srv, bobAuth)

	sent, err := alice.SendMessage(ctx, bobAuth.User.ID, "hello bob")
	require.NoError(t, err)
	assert.True(t, sent.From.Is(aliceAuth.User.ID))

	// The REST persist is broadcast to the recipient's socket.
	got := waitForMessage(t, bobCh.Events())
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "hello bob", got.Text)
	assert.Equal(t, "alice", got.From.Username)
	assert.True(t, got.To.Is(bobAuth.User.ID))

	// Unread for bob until he fetches history.
	counts, err := bob.UnreadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[aliceAuth.User.ID])

	history, err := bob.GetMessages(ctx, aliceAuth.User.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)

	counts, err = bob.UnreadCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[aliceAuth.User.ID])

	// Partner lists on both sides carry the last-message timestamp.
	partners, err := alice.ListChatPartners(ctx)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, bobAuth.User.ID, partners[0].ID)
	require.NotNil(t, partners[0].LastMessageAt)

	// Edit and react round-trip through the same REST surface.
	edited, err := alice.EditMessage(ctx, sent.ID, "hello there bob")
	require.NoError(t, err)
	assert.True(t, edited.Edited)

	require.NoError(t, bob.ReactToMessage(ctx, sent.ID, "👋"))
	history, err = bob.GetMessages(ctx, aliceAuth.User.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello there bob", history[0].Text)
	require.Len(t, history[0].Reactions, 1)
	assert.Equal(t, "👋", history[0].Reactions[0].Emoji)

	// Only the sender may delete.
	err = bob.DeleteMessage(ctx, sent.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	require.NoError(t, alice.DeleteMessage(ctx, sent.ID))
}

func TestSocketRelayMatchesPersistedRecord(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	alice, aliceAuth := register(t, srv, "alice")
	_, bobAuth := register(t, srv, "bob")

	aliceCh := dialRealtime(t, srv, aliceAuth)
	bobCh := dialRealtime(t, srv, bobAuth)

	// The client's send path: REST persist first, then the socket emit.
	sent, err := alice.SendMessage(ctx, bobAuth.User.ID, "ping")
	require.NoError(t, err)
	aliceCh.SendMessage(aliceAuth.User.ID, bobAuth.User.ID, "ping")

	// Bob may see the event twice (REST broadcast plus socket relay), but
	// every copy carries the canonical persisted id, never a second row.
	first := waitForMessage(t, bobCh.Events())
	assert.Equal(t, sent.ID, first.ID)

	select {
	case second := <-bobCh.Events():
		assert.Equal(t, sent.ID, second.ID)
	case <-time.After(500 * time.Millisecond):
	}

	history, err := alice.GetMessages(ctx, bobAuth.User.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMessageRequestFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	alice, aliceAuth := register(t, srv, "alice")
	carol, carolAuth := register(t, srv, "carol")

	// Carol is a stranger; her first message opens a request for alice.
	_, err := carol.SendMessage(ctx, aliceAuth.User.ID, "hi, found you via search")
	require.NoError(t, err)

	reqs, err := alice.ListMessageRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, carolAuth.User.ID, reqs[0].ID)

	require.NoError(t, alice.AcceptMessageRequest(ctx, carolAuth.User.ID))

	reqs, err = alice.ListMessageRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	// After accept the conversation reads like any other.
	history, err := alice.GetMessages(ctx, carolAuth.User.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// Decline path with a fresh stranger.
	dave, daveAuth := register(t, srv, "dave")
	_, err = dave.SendMessage(ctx, aliceAuth.User.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, alice.DeclineMessageRequest(ctx, daveAuth.User.ID))
	reqs, err = alice.ListMessageRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestSearchUsers(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	alice, _ := register(t, srv, "alice")
	register(t, srv, "alicia")
	register(t, srv, "bob")

	found, err := alice.SearchUsers(ctx, "ali")
	require.NoError(t, err)
	names := make([]string, len(found))
	for i, u := range found {
		names[i] = u.Username
	}
	assert.ElementsMatch(t, []string{"alice", "alicia"}, names)
}
