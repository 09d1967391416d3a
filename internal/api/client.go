// Package api provides the REST client for the social backend. The
// messaging core consumes it through the chat.API interface; endpoints
// outside messaging (profiles, uploads, stories) are not represented here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chatcore/internal/domain"
)

// Client talks to the backend REST API with bearer-token auth. All calls
// take a context and return wrapped sentinel errors from the domain
// package, so callers can branch with errors.Is.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the login/register payload: a session token plus the
// authenticated user.
type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Register creates an account and installs the returned token.
func (c *Client) Register(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login authenticates and installs the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) ListFriends(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/friends", nil, &out)
	return out, err
}

func (c *Client) ListFriendRequests(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/friends/requests", nil, &out)
	return out, err
}

func (c *Client) AcceptFriendRequest(ctx context.Context, senderID string) error {
	return c.do(ctx, http.MethodPost, "/api/friends/requests/"+url.PathEscape(senderID)+"/accept", nil, nil)
}

func (c *Client) SendFriendRequest(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/friends/requests/"+url.PathEscape(userID), nil, nil)
}

func (c *Client) ListChatPartners(ctx context.Context) ([]domain.Partner, error) {
	var out []domain.Partner
	err := c.do(ctx, http.MethodGet, "/api/chats/partners", nil, &out)
	return out, err
}

func (c *Client) ListMessageRequests(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/chats/requests", nil, &out)
	return out, err
}

func (c *Client) AcceptMessageRequest(ctx context.Context, senderID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/requests/"+url.PathEscape(senderID)+"/accept", nil, nil)
}

func (c *Client) DeclineMessageRequest(ctx context.Context, senderID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/requests/"+url.PathEscape(senderID)+"/decline", nil, nil)
}

func (c *Client) GetMessages(ctx context.Context, partnerID string) ([]domain.Message, error) {
	var out []domain.Message
	err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(partnerID), nil, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, toID, text string) (*domain.Message, error) {
	body := struct {
		To   string `json:"to"`
		Text string `json:"text"`
	}{toID, text}
	var out domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID, text string) (*domain.Message, error) {
	body := struct {
		Text string `json:"text"`
	}{text}
	var out domain.Message
	if err := c.do(ctx, http.MethodPut, "/api/messages/"+url.PathEscape(messageID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(messageID), nil, nil)
}

func (c *Client) ReactToMessage(ctx context.Context, messageID, emoji string) error {
	body := struct {
		Emoji string `json:"emoji"`
	}{emoji}
	return c.do(ctx, http.MethodPost, "/api/messages/"+url.PathEscape(messageID)+"/reactions", body, nil)
}

func (c *Client) UnreadCounts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int)
	err := c.do(ctx, http.MethodGet, "/api/messages/unread", nil, &out)
	return out, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/users/search?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}
	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusUnauthorized:
		sentinel = domain.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case http.StatusConflict:
		sentinel = domain.ErrConflict
	case http.StatusBadRequest:
		sentinel = domain.ErrInvalidInput
	default:
		return fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}
