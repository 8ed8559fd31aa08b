// ABOUTME: End-to-end scenario tests for the token lifecycle over the full handler
// ABOUTME: Exercises expiry, refresh recovery, eviction, and session continuity

package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/session-gateway/internal/config"
	"github.com/2389/session-gateway/internal/store"
)

func newScenarioGateway(t *testing.T, accessTTL, refreshTTL time.Duration) *Gateway {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.AccessTTL = accessTTL
	cfg.Auth.RefreshTTL = refreshTTL

	g, err := New(cfg, store.NewMemoryStore(store.SeedUsers), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return g
}

func TestScenario_ExpiredAccessRecoveredByRefresh(t *testing.T) {
	// Access tokens are born expired; refresh tokens live an hour.
	g := newScenarioGateway(t, -time.Second, time.Hour)
	h := g.Handler()

	sess := login(t, h, "admin", "admin123")

	// The expired access token is rejected at the gate.
	rec := doJSON(t, h, http.MethodGet, "/protected/data", sess.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The refresh exchange still works.
	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: sess.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decodeBody[RefreshResponse](t, rec)

	// The new token is also expired here (TTL is negative), but its claims
	// verify against the original identity when decoded without expiry.
	assert.NotEqual(t, sess.AccessToken, refreshed.AccessToken)
}

func TestScenario_SessionContinuity(t *testing.T) {
	g := newScenarioGateway(t, time.Minute, time.Hour)
	h := g.Handler()

	sess := login(t, h, "admin", "admin123")

	// admin reaches the admin panel and sees the identity count.
	rec := doJSON(t, h, http.MethodGet, "/protected/admin", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AdminResponse](t, rec)
	assert.Equal(t, len(store.SeedUsers), resp.Data.Stats.TotalUsers)

	// A refresh mid-session keeps the same refresh token working.
	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: sess.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decodeBody[RefreshResponse](t, rec)

	rec = doJSON(t, h, http.MethodGet, "/protected/admin", refreshed.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Logout ends the session on both credential kinds.
	rec = doJSON(t, h, http.MethodPost, "/auth/logout", refreshed.AccessToken, LogoutRequest{RefreshToken: sess.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/protected/admin", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: sess.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The original (pre-refresh) access token is untouched by revocation
	// but still subject to its own expiry; here it remains valid.
	rec = doJSON(t, h, http.MethodGet, "/protected/data", sess.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScenario_ExpiredRefreshEvicted(t *testing.T) {
	// Refresh tokens are born expired.
	g := newScenarioGateway(t, time.Minute, -time.Second)
	h := g.Handler()

	sess := login(t, h, "admin", "admin123")
	require.True(t, g.registry.HasRefresh(sess.RefreshToken))

	rec := doJSON(t, h, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: sess.RefreshToken})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Expiry-driven failure evicts the stale token from the registry.
	assert.False(t, g.registry.HasRefresh(sess.RefreshToken))
}

func TestScenario_RoleGateAcrossUsers(t *testing.T) {
	g := newScenarioGateway(t, time.Minute, time.Hour)
	h := g.Handler()

	adminSess := login(t, h, "admin", "admin123")
	userSess := login(t, h, "user", "user123")

	rec := doJSON(t, h, http.MethodGet, "/protected/admin", adminSess.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/protected/admin", userSess.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The non-admin can still reach plain protected data.
	rec = doJSON(t, h, http.MethodGet, "/protected/data", userSess.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
