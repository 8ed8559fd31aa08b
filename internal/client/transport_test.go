// ABOUTME: Unit tests for the retrying transport against fake round trippers
// ABOUTME: Exercises the skip list, refresh single-flight, and one-retry limit

package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/session-gateway/internal/store"
)

// fakeBase scripts responses per request and records what it saw.
type fakeBase struct {
	calls    atomic.Int64
	handle   func(req *http.Request) *http.Response
	requests []*http.Request
}

func (f *fakeBase) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	f.requests = append(f.requests, req)
	return f.handle(req), nil
}

type fakeRefresher struct {
	calls atomic.Int64
	token string
	err   error
}

func (f *fakeRefresher) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTransportSession(t *testing.T, access, refresh string) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(NewMemoryStorage())
	require.NoError(t, err)
	if access != "" {
		require.NoError(t, m.SetSession(access, refresh, store.UserInfo{ID: 1, Username: "admin"}))
	}
	return m
}

func TestTransport_SkippedPathsCarryNoBearer(t *testing.T) {
	base := &fakeBase{handle: func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	}}
	session := newTransportSession(t, "at", "rt")
	transport := NewTransport(base, session, &fakeRefresher{})

	for _, path := range []string{"/auth/login", "/auth/refresh", "/public/info"} {
		req, err := http.NewRequest(http.MethodGet, "http://gateway"+path, nil)
		require.NoError(t, err)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	for _, seen := range base.requests {
		assert.Empty(t, seen.Header.Get("Authorization"), seen.URL.Path)
	}
}

func TestTransport_AttachesBearer(t *testing.T) {
	base := &fakeBase{handle: func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	}}
	session := newTransportSession(t, "the-access-token", "rt")
	transport := NewTransport(base, session, &fakeRefresher{})

	req, err := http.NewRequest(http.MethodGet, "http://gateway/protected/data", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, base.requests, 1)
	assert.Equal(t, "Bearer the-access-token", base.requests[0].Header.Get("Authorization"))
}

func TestTransport_RefreshAndRetry(t *testing.T) {
	base := &fakeBase{}
	base.handle = func(req *http.Request) *http.Response {
		if req.Header.Get("Authorization") == "Bearer fresh-access" {
			return jsonResponse(http.StatusOK, `{"message":"ok"}`)
		}
		return jsonResponse(http.StatusForbidden, `{"error":"invalid or expired token"}`)
	}
	session := newTransportSession(t, "stale-access", "rt")
	ref := &fakeRefresher{token: "fresh-access"}
	transport := NewTransport(base, session, ref)

	req, err := http.NewRequest(http.MethodGet, "http://gateway/protected/data", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), base.calls.Load())
	assert.Equal(t, int64(1), ref.calls.Load())
	assert.Equal(t, "fresh-access", session.AccessToken())
	assert.True(t, session.RefreshToken() == "rt", "refresh token is not rotated")
}

func TestTransport_RetryReplaysBody(t *testing.T) {
	var bodies []string
	base := &fakeBase{}
	base.handle = func(req *http.Request) *http.Response {
		data, _ := io.ReadAll(req.Body)
		bodies = append(bodies, string(data))
		if req.Header.Get("Authorization") == "Bearer fresh-access" {
			return jsonResponse(http.StatusOK, `{}`)
		}
		return jsonResponse(http.StatusUnauthorized, `{"error":"token not provided"}`)
	}
	session := newTransportSession(t, "stale-access", "rt")
	transport := NewTransport(base, session, &fakeRefresher{token: "fresh-access"})

	req, err := http.NewRequest(http.MethodPost, "http://gateway/protected/data",
		strings.NewReader(`{"payload":42}`))
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, bodies, 2)
	assert.Equal(t, `{"payload":42}`, bodies[0])
	assert.Equal(t, `{"payload":42}`, bodies[1])
}

func TestTransport_NoRefreshTokenClearsSession(t *testing.T) {
	base := &fakeBase{handle: func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusUnauthorized, `{"error":"token not provided"}`)
	}}
	session := newTransportSession(t, "", "")
	ref := &fakeRefresher{token: "unused"}
	transport := NewTransport(base, session, ref)

	req, err := http.NewRequest(http.MethodGet, "http://gateway/protected/data", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int64(0), ref.calls.Load())
	assert.False(t, session.IsAuthenticated())
}

func TestTransport_RenewalFailureClearsSessionAndPropagates(t *testing.T) {
	base := &fakeBase{handle: func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusForbidden, `{"error":"invalid or expired token"}`)
	}}
	session := newTransportSession(t, "stale-access", "dead-refresh")
	ref := &fakeRefresher{err: errors.New("refresh token expired")}
	transport := NewTransport(base, session, ref)

	req, err := http.NewRequest(http.MethodGet, "http://gateway/protected/data", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The original failure comes back, the single retry never happens,
	// and the session is gone.
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int64(1), base.calls.Load())
	assert.Empty(t, session.AccessToken())
	assert.Nil(t, session.CurrentUser())
}

func TestTransport_AbandonsRetryWhenSessionReplaced(t *testing.T) {
	session := newTransportSession(t, "stale-access", "rt-old")

	base := &fakeBase{handle: func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusForbidden, `{"error":"invalid or expired token"}`)
	}}
	ref := &fakeRefresher{token: "fresh-access"}
	// Simulate a logout racing the exchange: by the time the renewal
	// lands, the session holds a different refresh token.
	realExchange := ref
	swapper := refresherFunc(func(ctx context.Context, refreshToken string) (string, error) {
		if err := session.SetSession("other-access", "rt-new", store.UserInfo{ID: 2, Username: "user"}); err != nil {
			return "", err
		}
		return realExchange.exchangeRefresh(ctx, refreshToken)
	})
	transport := NewTransport(base, session, swapper)

	req, err := http.NewRequest(http.MethodGet, "http://gateway/protected/data", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The original 403 is returned and no retry carries the renewed token.
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int64(1), base.calls.Load())
}

func TestTransport_SecondFailureClearsSession(t *testing.T) {
	base := &fakeBase{handle: func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusForbidden, `{"error":"invalid or expired token"}`)
	}}
	session := newTransportSession(t, "stale-access", "rt")
	ref := &fakeRefresher{token: "fresh-but-useless"}
	transport := NewTransport(base, session, ref)

	req, err := http.NewRequest(http.MethodGet, "http://gateway/protected/data", nil)
	require.NoError(t, err)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Exactly one retry, then give up and drop the session.
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int64(2), base.calls.Load())
	assert.Equal(t, int64(1), ref.calls.Load())
	assert.Empty(t, session.AccessToken())
}

// refresherFunc adapts a function to the refresher interface.
type refresherFunc func(ctx context.Context, refreshToken string) (string, error)

func (f refresherFunc) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	return f(ctx, refreshToken)
}
