// ABOUTME: http.RoundTripper that attaches bearer tokens and retries after refresh
// ABOUTME: Coordinates at-most-one in-flight refresh exchange via singleflight

package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"
)

// skipPrefixes are the request paths that never receive the bearer header
// and never trigger the refresh-and-retry cycle: the auth exchanges
// themselves and the public endpoints.
var skipPrefixes = []string{"/auth/login", "/auth/refresh", "/public/"}

// refresher exchanges a refresh token for a new access token. Implemented
// by Client against POST /auth/refresh.
type refresher interface {
	exchangeRefresh(ctx context.Context, refreshToken string) (string, error)
}

// Transport wraps outbound requests with session credentials.
//
// On a 401 or 403 from a non-skipped request it drives a single refresh
// exchange through the singleflight group: however many requests fail
// concurrently, exactly one /auth/refresh round trip happens, and every
// waiter retries its original request once with the fresh token. A retried
// request that fails authorization again is returned as-is — there is
// never a second retry.
//
// If the refresh exchange fails, or no refresh token is available, the
// session is cleared (observers see nil) and the original failure is
// propagated.
type Transport struct {
	base      http.RoundTripper
	session   *SessionManager
	refresher refresher
	group     singleflight.Group
}

// NewTransport creates a Transport over the given base round tripper.
func NewTransport(base http.RoundTripper, session *SessionManager, r refresher) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, session: session, refresher: r}
}

func skipAuth(path string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if skipAuth(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	// Buffer the body up front so the request can be replayed on retry.
	if req.Body != nil && req.GetBody == nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(data))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	attempt := req.Clone(req.Context())
	if token := t.session.AccessToken(); token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	refreshToken := t.session.RefreshToken()
	if refreshToken == "" {
		// Nothing to renew with: fatal auth failure, back to anonymous.
		t.session.Clear()
		return resp, nil
	}

	newAccess, renewErr := t.renew(req.Context(), refreshToken)
	if renewErr != nil {
		t.session.Clear()
		return resp, nil
	}

	// The session may have been cleared or replaced while the exchange
	// was in flight; a retry must not reuse a dead session's credential.
	if t.session.RefreshToken() != refreshToken {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+newAccess)

	retryResp, err := t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	// One retry only. If authorization still fails the session is dead;
	// clear it and let the failure propagate.
	if retryResp.StatusCode == http.StatusUnauthorized || retryResp.StatusCode == http.StatusForbidden {
		t.session.Clear()
	}
	return retryResp, nil
}

// renew performs the single-flight refresh exchange. Concurrent callers
// holding the same refresh token share one outcome.
func (t *Transport) renew(ctx context.Context, refreshToken string) (string, error) {
	v, err, _ := t.group.Do(refreshToken, func() (interface{}, error) {
		newAccess, err := t.refresher.exchangeRefresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		// Persist only if the session still holds the token we renewed
		// with; a session replaced mid-exchange keeps its own credential.
		if t.session.RefreshToken() == refreshToken {
			if err := t.session.SetAccessToken(newAccess); err != nil {
				return nil, err
			}
		}
		return newAccess, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
