// Package gro is a client for the GroceryShopperAI chat server.
package gro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a GroceryShopperAI API client.
type Client struct {
	BaseURL    string
	ConfigDir  string
	Token      string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewClient creates a new client and loads a saved token, if any.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	configDir := os.Getenv("GRO_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".gro")
	}

	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 3 * time.Minute},
		Dialer:     websocket.DefaultDialer,
	}

	_ = c.LoadToken()
	return c
}

// LoadToken reads the saved access token from disk.
func (c *Client) LoadToken() error {
	data, err := os.ReadFile(filepath.Join(c.ConfigDir, "token"))
	if err != nil {
		return err
	}
	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken writes the current access token to disk.
func (c *Client) SaveToken() error {
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.ConfigDir, "token"), []byte(c.Token), 0600)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gro error %d: %s", e.Status, e.Message)
}

// do performs a JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

// Signup registers a user and keeps the returned token.
func (c *Client) Signup(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, "/api/signup", username, password)
}

// Login authenticates a user and keeps the returned token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, "/api/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) error {
	var resp tokenResponse
	if err := c.do(ctx, "POST", path, credentials{username, password}, &resp); err != nil {
		return err
	}
	c.Token = resp.Token
	return nil
}

// Room is a chat room the caller belongs to.
type Room struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Rooms lists the caller's rooms.
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := c.do(ctx, "GET", "/api/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// CreateRoom creates a room owned by the caller.
func (c *Client) CreateRoom(ctx context.Context, name string) (*Room, error) {
	var resp struct {
		Room Room `json:"room"`
	}
	if err := c.do(ctx, "POST", "/api/rooms", map[string]string{"name": name}, &resp); err != nil {
		return nil, err
	}
	return &resp.Room, nil
}

// Invite adds username to a room owned by the caller.
func (c *Client) Invite(ctx context.Context, roomID int64, username string) error {
	return c.do(ctx, "POST", fmt.Sprintf("/api/rooms/%d/invite", roomID), map[string]string{"username": username}, nil)
}

// Message is a chat message as delivered by the server.
type Message struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Content     string `json:"content"`
	IsBot       bool   `json:"is_bot"`
	CreatedAt   string `json:"created_at"`
}

// Event is a live room event.
type Event struct {
	Type    string  `json:"type"`
	RoomID  int64   `json:"room_id"`
	Message Message `json:"message"`
}

// PostMessage posts content to a room and returns the new message id.
func (c *Client) PostMessage(ctx context.Context, roomID int64, content string) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, "POST", fmt.Sprintf("/api/rooms/%d/messages", roomID), map[string]string{"content": content}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Messages returns up to limit recent messages of a room, oldest first.
func (c *Client) Messages(ctx context.Context, roomID int64, limit int) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	path := fmt.Sprintf("/api/rooms/%d/messages?limit=%d", roomID, limit)
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// PlanRequest selects a plan kind and optional overrides.
type PlanRequest struct {
	Kind     string `json:"kind"`
	Goal     string `json:"goal,omitempty"`
	Provider string `json:"provider,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Plan asks the server to build a plan from the room's chat. The plan is
// returned undecoded since its shape depends on the kind.
func (c *Client) Plan(ctx context.Context, roomID int64, req PlanRequest) (json.RawMessage, error) {
	var resp struct {
		Plan json.RawMessage `json:"plan"`
	}
	if err := c.do(ctx, "POST", fmt.Sprintf("/api/rooms/%d/plan", roomID), req, &resp); err != nil {
		return nil, err
	}
	return resp.Plan, nil
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.do(ctx, "GET", "/health", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Subscribe streams the live events of a room to fn until ctx is done or
// the connection fails. A server-side close is returned as the error.
func (c *Client) Subscribe(ctx context.Context, roomID int64, fn func(Event)) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"room_id": {strconv.FormatInt(roomID, 10)}}.Encode()

	conn, _, err := c.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return nil
			}
			return err
		}
		fn(ev)
	}
}
