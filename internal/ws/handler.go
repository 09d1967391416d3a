package ws

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"chatcore/internal/domain"
	"chatcore/internal/security"
	"chatcore/internal/service"
)

type inboundEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	From   string `json:"from"`
	To     string `json:"to"`
	Text   string `json:"text"`
}

type newMessageEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		// Native clients send no Origin header; only browsers are subject
		// to the allowlist.
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return r.URL.Query().Get("token")
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
//
// The connection authenticates with a bearer token, then the client emits
// a login event carrying its user id; only then is the connection
// registered for routing, so the server knows where to deliver newMessage
// events. Inbound events:
//   - login        -> register connection for the user, mark online
//   - sendMessage  -> persist {from,to,text} and deliver newMessage to
//     recipient and sender
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	msgSvc *service.MessageService,
	allowedOrigins []string,
) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: makeCheckOrigin(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		authedID, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user, err := users.GetByID(r.Context(), authedID)
		if err != nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(raw)
		defer conn.Close()

		ctx := r.Context()
		registered := false
		defer func() {
			if registered {
				hub.Unregister(user.ID, conn)
				if err := users.SetOnlineStatus(context.Background(), user.ID, false); err != nil {
					log.Printf("ws: set offline for %s: %v", user.ID, err)
				}
			}
		}()

		for {
			var ev inboundEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			switch ev.Type {

			case "login":
				// The login payload must match the authenticated user; the
				// routing association is re-established on every reconnect.
				if ev.UserID != user.ID {
					sendError(conn, "login user mismatch")
					continue
				}
				if !registered {
					hub.Register(user.ID, conn)
					registered = true
					if err := users.SetOnlineStatus(ctx, user.ID, true); err != nil {
						log.Printf("ws: set online for %s: %v", user.ID, err)
					}
				}

			case "sendMessage":
				if ev.From != "" && ev.From != user.ID {
					sendError(conn, "sendMessage from mismatch")
					continue
				}
				if ev.To == "" || ev.Text == "" {
					sendError(conn, "sendMessage requires to and text")
					continue
				}
				// The REST call normally persists the message before the
				// client emits here, so relay the canonical record when it
				// matches; otherwise the socket is the only path that saw
				// the send and must persist it itself.
				msg, err := msgSvc.LatestFrom(ctx, user.ID, ev.To)
				if err != nil || msg.Text != ev.Text {
					msg, err = msgSvc.Send(ctx, user.ID, ev.To, ev.Text)
					if err != nil {
						log.Printf("ws: sendMessage from %s: %v", user.ID, err)
						sendError(conn, "failed to send message")
						continue
					}
				}
				DeliverNewMessage(hub, *msg, user)

			default:
				log.Printf("ws: unknown event type %q from user %s", ev.Type, user.ID)
			}
		}
	}
}

// DeliverNewMessage pushes a newMessage event to both sides of a message.
// The sender reference is embedded as a full user object while the
// recipient stays a bare id, mirroring what a populated store record looks
// like on the wire.
func DeliverNewMessage(hub *Hub, msg domain.Message, from *domain.User) {
	if from != nil && from.ID == msg.From.ID {
		msg.From = domain.UserRef{
			ID:           from.ID,
			Username:     from.Username,
			ProfileImage: from.ProfileImage,
		}
	}
	hub.SendToUsers([]string{msg.To.ID, msg.From.ID}, newMessageEvent{
		Type:    "newMessage",
		Message: msg,
	})
}

func sendError(conn *Conn, msg string) {
	_ = conn.WriteJSON(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
