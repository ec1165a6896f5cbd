// Package bridge relays native messages to a running serve daemon over its
// WebSocket, so every browser launch of the native host shares one
// registry.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/tinoosan/tunebridge/internal/nativemsg"
)

const DefaultTimeout = 3 * time.Second

type Client struct {
	wsURL   *url.URL
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewClient accepts the daemon's WebSocket URL (ws, wss) or its HTTP base
// (http, https). A bare base gets the /v1/ws path.
func NewClient(rawURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ws, base := *u, *u
	switch u.Scheme {
	case "ws", "http":
		ws.Scheme, base.Scheme = "ws", "http"
	case "wss", "https":
		ws.Scheme, base.Scheme = "wss", "https"
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if ws.Path == "" || ws.Path == "/" {
		ws.Path = "/v1/ws"
	}
	base.Path, base.RawQuery = "", ""

	return &Client{
		wsURL:   &ws,
		baseURL: &base,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) URL() *url.URL { return c.wsURL }

// Ping checks the daemon's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath("healthz").String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge health: %s", resp.Status)
	}
	return nil
}

// Dial opens a relay session.
func (c *Client) Dial(ctx context.Context) (*Session, error) {
	var hdr http.Header
	if c.token != "" {
		hdr = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}
	conn, _, err := websocket.Dial(ctx, c.wsURL.String(), &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(nativemsg.MaxIncoming)
	return &Session{conn: conn}, nil
}

// Session forwards one request at a time and returns the daemon's reply
// verbatim. It implements nativemsg.Handler.
type Session struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Session) Handle(ctx context.Context, req json.RawMessage) any {
	resp, err := s.Relay(ctx, req)
	if err != nil {
		return errorResponse{Error: "Bridge unavailable: " + err.Error()}
	}
	return resp
}

// Relay sends req and waits for the matching response.
func (s *Session) Relay(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Write(ctx, websocket.MessageText, req); err != nil {
		return nil, err
	}
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (s *Session) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "done")
}
