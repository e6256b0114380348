package waylinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Wayline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Player mirrors the API player model (partial).
type Player struct {
	Coins               int `json:"coins"`
	Resolve             int `json:"resolve"`
	Health              int `json:"health"`
	Stamina             int `json:"stamina"`
	Focus               int `json:"focus"`
	CompletedSituations int `json:"completed_situations"`
}

// Session is the snapshot the API returns.
type Session struct {
	ID        string `json:"id"`
	Player    Player `json:"player"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ActionView is one gated catalog entry with scaled values.
type ActionView struct {
	Action struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"action"`
	Satisfied          bool `json:"satisfied"`
	SatisfiedPathIndex int  `json:"satisfied_path_index"`
}

// ActionResult is the outcome of one attempt.
type ActionResult struct {
	OK            bool           `json:"ok"`
	Reason        string         `json:"reason,omitempty"`
	ActionID      string         `json:"action_id,omitempty"`
	Applied       map[string]int `json:"applied,omitempty"`
	StepsAdvanced []string       `json:"steps_advanced,omitempty"`
}

// DeliveryItem is one queued commitment.
type DeliveryItem struct {
	ID            string `json:"id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	Privileged    bool   `json:"privileged,omitempty"`
	QueuePosition int    `json:"queue_position"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateSession starts a new playthrough.
func (c *Client) CreateSession(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "sessions", map[string]any{"id": id}, &resp)
	return resp, err
}

// GetSession fetches a session snapshot.
func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, "sessions/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Actions lists the gated catalog for a session.
func (c *Client) Actions(ctx context.Context, sessionID string) ([]ActionView, error) {
	var resp []ActionView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("sessions/%s/actions", url.PathEscape(sessionID)), nil, &resp)
	return resp, err
}

// PerformAction attempts an action.
func (c *Client) PerformAction(ctx context.Context, sessionID, actionID string) (ActionResult, error) {
	var resp ActionResult
	endpoint := fmt.Sprintf("sessions/%s/actions/%s", url.PathEscape(sessionID), url.PathEscape(actionID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// StartNarrative activates a narrative.
func (c *Client) StartNarrative(ctx context.Context, sessionID, narrativeID string) (Session, error) {
	var resp Session
	endpoint := fmt.Sprintf("sessions/%s/narratives/%s/start", url.PathEscape(sessionID), url.PathEscape(narrativeID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// Queue returns the delivery queue in position order.
func (c *Client) Queue(ctx context.Context, sessionID string) ([]DeliveryItem, error) {
	var resp []DeliveryItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("sessions/%s/queue", url.PathEscape(sessionID)), nil, &resp)
	return resp, err
}

// Events returns recent session events.
func (c *Client) Events(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	endpoint := fmt.Sprintf("sessions/%s/events", url.PathEscape(sessionID))
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
