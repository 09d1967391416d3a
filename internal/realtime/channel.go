// Package realtime implements the client side of the live message channel:
// a persistent websocket that carries outbound login/sendMessage events and
// inbound newMessage events. REST remains the persistence path; this
// channel only exists for low-latency delivery, so everything here is
// best-effort and a dead socket degrades the app to REST polling, never
// breaks it.
package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatcore/internal/domain"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

type envelope struct {
	Type    string          `json:"type"`
	UserID  string          `json:"userId,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Text    string          `json:"text,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
}

// Channel is a live connection for one user session. After each successful
// dial it emits a login event carrying the local user id; the server uses
// that to route subsequent messages, so the login is re-emitted on every
// reconnect.
type Channel struct {
	url    string
	token  string
	userID string
	dialer *websocket.Dialer

	events chan domain.Message

	mu   sync.Mutex
	conn *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens the channel and starts the read loop. The returned Channel
// keeps itself connected with capped backoff until Close.
func Dial(ctx context.Context, wsURL, token, userID string) (*Channel, error) {
	c := &Channel{
		url:    wsURL,
		token:  token,
		userID: userID,
		dialer: websocket.DefaultDialer,
		events: make(chan domain.Message, 16),
		closed: make(chan struct{}),
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.setConn(conn)
	go c.run()
	return c, nil
}

// Events delivers inbound newMessage events. The channel is closed after
// Close.
func (c *Channel) Events() <-chan domain.Message {
	return c.events
}

// SendMessage emits a sendMessage event. Fire-and-forget: no ack is
// awaited and a write failure is only logged, because the REST call that
// precedes this is what actually persists the message.
func (c *Channel) SendMessage(fromID, toID, text string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	err := conn.WriteJSON(envelope{Type: "sendMessage", From: fromID, To: toID, Text: text})
	if err != nil {
		log.Printf("realtime: sendMessage emit: %v", err)
	}
}

// Close tears the channel down and stops reconnecting.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	return nil
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(envelope{Type: "login", UserID: c.userID}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Channel) run() {
	defer close(c.events)
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		c.readLoop(conn)

		select {
		case <-c.closed:
			return
		default:
		}

		conn, ok := c.reconnect()
		if !ok {
			return
		}
		c.setConn(conn)
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			conn.Close()
			return
		}
		if env.Type != "newMessage" || env.Message == nil {
			continue
		}
		select {
		case c.events <- *env.Message:
		case <-c.closed:
			return
		}
	}
}

func (c *Channel) reconnect() (*websocket.Conn, bool) {
	backoff := reconnectBase
	for {
		select {
		case <-c.closed:
			return nil, false
		case <-time.After(backoff):
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			return conn, true
		}
		log.Printf("realtime: reconnect: %v", err)
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}
