// ABOUTME: In-memory registries for revoked access tokens and live refresh tokens
// ABOUTME: Mutex-guarded sets with a background sweeper for expired entries

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry tracks the two pieces of server-side token state: access tokens
// revoked before their natural expiry, and refresh tokens currently valid
// for exchange. Both sets are process-local; restart clears them, which is
// acceptable because every token also carries its own expiry.
type Registry struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // raw access token -> natural expiry
	refresh map[string]time.Time // raw refresh token -> natural expiry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		revoked: make(map[string]time.Time),
		refresh: make(map[string]time.Time),
	}
}

// RevokeAccess adds a raw access token to the revocation set.
// expiresAt is the token's natural expiry, used only by the sweeper.
func (r *Registry) RevokeAccess(token string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[token] = expiresAt
}

// IsRevoked reports whether the raw access token has been revoked.
// Membership wins over otherwise-valid signature and expiry.
func (r *Registry) IsRevoked(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[token]
	return ok
}

// RegisterRefresh records a refresh token as valid for exchange.
func (r *Registry) RegisterRefresh(token string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[token] = expiresAt
}

// RemoveRefresh removes a refresh token from the exchangeable set.
// Removal is the sole invalidation mechanism for refresh tokens; a removed
// token is never re-added.
func (r *Registry) RemoveRefresh(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, token)
}

// HasRefresh reports whether the refresh token is currently exchangeable.
func (r *Registry) HasRefresh(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.refresh[token]
	return ok
}

// ActiveRefreshCount returns the number of refresh tokens currently
// registered, reported in the admin stats payload.
func (r *Registry) ActiveRefreshCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refresh)
}

// Sweep removes entries whose natural expiry is before now. Sweeping is a
// memory courtesy only: expired tokens fail verification regardless.
func (r *Registry) Sweep(now time.Time) (removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, exp := range r.revoked {
		if exp.Before(now) {
			delete(r.revoked, token)
			removed++
		}
	}
	for token, exp := range r.refresh {
		if exp.Before(now) {
			delete(r.refresh, token)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep at the given interval until ctx is canceled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := r.Sweep(now); removed > 0 {
					logger.Debug("swept expired registry entries", "removed", removed)
				}
			}
		}
	}()
}
