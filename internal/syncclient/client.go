// Package syncclient is the HTTP client for the compass progress server.
package syncclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client is an HTTP client for the compass-server progress API.
type Client struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client
}

// New creates a new progress API client.
func New(baseURL, apiKey, deviceID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Wire types (mirrors internal/api, independently defined) ---

// SubmitRequest is the body for POST /v1/progress/anonymous.
type SubmitRequest struct {
	SessionID        string `json:"session_id"`
	ChallengeID      string `json:"challenge_id"`
	SelectedOptionID string `json:"selected_option_id"`
	IsCompleted      bool   `json:"is_completed"`
}

// ProgressResponse is a single progress record from the server.
type ProgressResponse struct {
	ChallengeID      string `json:"challenge_id"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	IsCompleted      bool   `json:"is_completed"`
	SessionID        string `json:"session_id,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	CompletedAt      string `json:"completed_at,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// BeaconItem is a single queued mutation in a beacon batch.
type BeaconItem struct {
	Action           string `json:"action"`
	SessionID        string `json:"session_id"`
	ChallengeID      string `json:"challenge_id"`
	SelectedOptionID string `json:"selected_option_id"`
	IsCompleted      bool   `json:"is_completed"`
	Timestamp        string `json:"timestamp"`
}

// BeaconRequest is the body for POST /v1/progress/sync-beacon.
type BeaconRequest struct {
	Type     string       `json:"type"` // always "batch_sync"
	Items    []BeaconItem `json:"items"`
	DeviceID string       `json:"device_id"`
}

// MigrateRequest is the body for POST /v1/progress/migrate.
type MigrateRequest struct {
	UserID            string             `json:"user_id"`
	SessionID         string             `json:"session_id"`
	AnonymousProgress []ProgressResponse `json:"anonymous_progress"`
}

// MigrateResponse is the server's per-challenge migration classification.
type MigrateResponse struct {
	Migrated  int                     `json:"migrated"`
	Conflicts int                     `json:"conflicts"`
	Failed    int                     `json:"failed"`
	Details   []MigrateDetailResponse `json:"details,omitempty"`
}

// MigrateDetailResponse is one challenge outcome in a migrate response.
type MigrateDetailResponse struct {
	ChallengeID string `json:"challenge_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (c *Client) HealthCheck() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doNoAuth("GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitAnonymous upserts one anonymous progress record. Idempotent: the
// server keys on (session_id, challenge_id).
func (c *Client) SubmitAnonymous(req *SubmitRequest) (*ProgressResponse, error) {
	var resp ProgressResponse
	if err := c.doNoAuth("POST", "/v1/progress/anonymous", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendBeacon delivers a bounded batch fire-and-forget: the response body is
// discarded and only transport-level failure is reported. Duplicate delivery
// is safe because the server upserts.
func (c *Client) SendBeacon(items []BeaconItem) error {
	req := &BeaconRequest{Type: "batch_sync", Items: items, DeviceID: c.DeviceID}
	return c.doNoAuth("POST", "/v1/progress/sync-beacon", req, nil)
}

// Migrate submits the anonymous progress set for reconciliation into the
// authenticated user's record set.
func (c *Client) Migrate(req *MigrateRequest) (*MigrateResponse, error) {
	var resp MigrateResponse
	if err := c.do("POST", "/v1/progress/migrate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProgress returns the authenticated user's progress records.
func (c *Client) GetProgress() ([]ProgressResponse, error) {
	var resp []ProgressResponse
	if err := c.do("GET", "/v1/progress", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetAnonymousProgress returns the records owned by the given session.
func (c *Client) GetAnonymousProgress(sessionID string) ([]ProgressResponse, error) {
	params := url.Values{}
	params.Set("session_id", sessionID)

	var resp []ProgressResponse
	if err := c.doNoAuth("GET", "/v1/progress/anonymous?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// do executes an authenticated HTTP request.
func (c *Client) do(method, path string, body, result any) error {
	return c.doRequest(method, path, body, result, true)
}

// doNoAuth executes an unauthenticated HTTP request.
func (c *Client) doNoAuth(method, path string, body, result any) error {
	return c.doRequest(method, path, body, result, false)
}

func (c *Client) doRequest(method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Compass-Device", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error apiError `json:"error"`
		}
		if json.Unmarshal(respBody, &wrapper) == nil && wrapper.Error.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, wrapper.Error.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, wrapper.Error.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, wrapper.Error.Message)
			default:
				return &wrapper.Error
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
