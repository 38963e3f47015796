package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cybercompass/compass/internal/serverdb"
)

// TestHarness wraps a full Server with a real HTTP listener for integration tests.
type TestHarness struct {
	t       *testing.T
	Server  *Server
	Store   *serverdb.ServerDB
	BaseURL string
	client  *http.Client
	httpSrv *httptest.Server
}

// newTestHarness creates a TestHarness with a real HTTP server on a random port.
func newTestHarness(t *testing.T, opts ...func(*Config)) *TestHarness {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "compass.db")
	store, err := serverdb.Open(dbPath)
	if err != nil {
		t.Fatalf("open server db: %v", err)
	}

	cfg := Config{
		ListenAddr:     ":0",
		ServerDBPath:   dbPath,
		MaxBodyBytes:   1 << 20,
		BeaconMaxItems: 50,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := NewServer(cfg, store)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	httpSrv := httptest.NewServer(srv.routes())

	h := &TestHarness{
		t:       t,
		Server:  srv,
		Store:   store,
		BaseURL: httpSrv.URL,
		client:  &http.Client{},
		httpSrv: httpSrv,
	}

	t.Cleanup(func() {
		httpSrv.Close()
		store.Close()
	})

	return h
}

// Do sends an HTTP request and returns the response. Caller closes resp.Body.
func (h *TestHarness) Do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = &buf
	}
	req, err := http.NewRequest(method, h.BaseURL+path, reqBody)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("do request %s %s: %v", method, path, err)
	}

	return resp
}

// DoJSON sends an HTTP request and decodes the JSON response into out.
// Fatals if the response status is >= 400 or if JSON decoding fails.
func (h *TestHarness) DoJSON(method, path, token string, body any, out any) *http.Response {
	h.t.Helper()

	resp := h.Do(method, path, token, body)
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		h.t.Fatalf("DoJSON %s %s: expected success, got %d: %s", method, path, resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		h.t.Fatalf("decode response: %v", err)
	}

	return resp
}

// AssertStatus checks the response status and closes the body.
func (h *TestHarness) AssertStatus(resp *http.Response, want int) {
	h.t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		h.t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, respBody)
	}
}

// AssertErrorCode checks the response status and the error envelope code,
// closing the body.
func (h *TestHarness) AssertErrorCode(resp *http.Response, wantStatus int, wantCode string) {
	h.t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		h.t.Fatalf("status = %d, want %d", resp.StatusCode, wantStatus)
	}
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		h.t.Fatalf("decode error response: %v", err)
	}
	if er.Error.Code != wantCode {
		h.t.Errorf("error code = %q, want %q", er.Error.Code, wantCode)
	}
}

// CreateUser creates a user with an API key.
func (h *TestHarness) CreateUser(email string) (userID, token string) {
	h.t.Helper()

	user, err := h.Store.CreateUser(email)
	if err != nil {
		h.t.Fatalf("create user: %v", err)
	}

	tok, _, err := h.Store.GenerateAPIKey(user.ID, "test", nil)
	if err != nil {
		h.t.Fatalf("generate api key: %v", err)
	}

	return user.ID, tok
}
