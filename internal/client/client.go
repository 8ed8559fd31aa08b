// ABOUTME: Typed API client for the session-gateway HTTP endpoints
// ABOUTME: Wires the session manager and retrying transport into one client

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/2389/session-gateway/internal/gateway"
	"github.com/2389/session-gateway/internal/store"
)

// ErrNotAuthenticated is returned by calls that need a session when the
// client is anonymous.
var ErrNotAuthenticated = errors.New("client: not authenticated")

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

// Client is a typed API client for session-gateway. All requests flow
// through the Transport, which attaches the bearer token and performs the
// single-flight refresh-and-retry cycle transparently.
type Client struct {
	baseURL    string
	session    *SessionManager
	httpClient *http.Client
}

// New creates a Client against the given base URL (e.g.
// "http://localhost:3001") using http.DefaultTransport underneath.
func New(baseURL string, session *SessionManager) *Client {
	return NewWithTransport(baseURL, session, nil)
}

// NewWithTransport creates a Client with a custom underlying round
// tripper, used by tests to point at an httptest server.
func NewWithTransport(baseURL string, session *SessionManager, base http.RoundTripper) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
	}
	c.httpClient = &http.Client{
		Transport: NewTransport(base, session, c),
	}
	return c
}

// Session returns the client's session manager.
func (c *Client) Session() *SessionManager {
	return c.session
}

// Login authenticates and stores the returned session.
func (c *Client) Login(ctx context.Context, username, password string) (*gateway.LoginResponse, error) {
	var resp gateway.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login",
		gateway.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	if err := c.session.SetSession(resp.AccessToken, resp.RefreshToken, resp.User); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current access token server-side and clears the
// local session.
func (c *Client) Logout(ctx context.Context) error {
	refreshToken := c.session.RefreshToken()
	if c.session.AccessToken() == "" {
		return ErrNotAuthenticated
	}

	err := c.do(ctx, http.MethodPost, "/auth/logout",
		gateway.LogoutRequest{RefreshToken: refreshToken}, nil)
	if err != nil {
		return err
	}
	return c.session.Clear()
}

// Refresh manually exchanges the stored refresh token for a new access
// token. The Transport normally does this automatically on authorization
// failures.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return "", ErrNotAuthenticated
	}

	newAccess, err := c.exchangeRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if err := c.session.SetAccessToken(newAccess); err != nil {
		return "", err
	}
	return newAccess, nil
}

// Me returns the current identity as the server sees it.
func (c *Client) Me(ctx context.Context) (*store.UserInfo, error) {
	var info store.UserInfo
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ProtectedData fetches the sample protected payload.
func (c *Client) ProtectedData(ctx context.Context) (*gateway.ProtectedDataResponse, error) {
	var resp gateway.ProtectedDataResponse
	if err := c.do(ctx, http.MethodGet, "/protected/data", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminPanel fetches the admin aggregate. Requires the admin role.
func (c *Client) AdminPanel(ctx context.Context) (*gateway.AdminResponse, error) {
	var resp gateway.AdminResponse
	if err := c.do(ctx, http.MethodGet, "/protected/admin", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PublicInfo fetches the public API descriptor. Never authenticated.
func (c *Client) PublicInfo(ctx context.Context) (*gateway.PublicInfoResponse, error) {
	var resp gateway.PublicInfoResponse
	if err := c.do(ctx, http.MethodGet, "/public/info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks gateway liveness.
func (c *Client) Health(ctx context.Context) (*gateway.HealthResponse, error) {
	var resp gateway.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// exchangeRefresh posts the refresh token and returns the new access
// token. Called by the Transport under its singleflight group; the
// /auth/refresh path is on the transport's skip list, so the exchange
// itself never recurses into the retry cycle.
func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	var resp gateway.RefreshResponse
	err := c.do(ctx, http.MethodPost, "/auth/refresh",
		gateway.RefreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// do sends a JSON request and decodes a JSON response. Non-2xx statuses
// become *APIError with the body's error message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody["error"]
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
