// ABOUTME: Client-side session manager holding the persisted credential pair
// ABOUTME: Exposes expiry inspection and observable current-identity changes

package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/session-gateway/internal/store"
)

// Storage keys for the persisted session triple.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// SessionManager holds the last-known credential pair and identity
// snapshot in client-local storage. All three values are written as a
// unit; a session missing any part counts as not authenticated.
//
// Identity observers are notified on every transition: login and refresh
// deliver the current identity, logout delivers nil. Observers run after
// the manager's lock is released, so they may call back into the manager.
type SessionManager struct {
	mu          sync.RWMutex
	storage     Storage
	access      string
	refresh     string
	user        *store.UserInfo
	subscribers map[int]func(*store.UserInfo)
	nextSubID   int
}

// NewSessionManager creates a SessionManager over the given storage,
// restoring any previously persisted session.
func NewSessionManager(storage Storage) (*SessionManager, error) {
	m := &SessionManager{
		storage:     storage,
		subscribers: make(map[int]func(*store.UserInfo)),
	}

	values, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	access, refresh, userJSON := values[keyAccessToken], values[keyRefreshToken], values[keyUser]
	if access == "" || refresh == "" || userJSON == "" {
		return m, nil // incomplete triple, start anonymous
	}

	var user store.UserInfo
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return m, nil // corrupt snapshot, start anonymous
	}

	m.access, m.refresh, m.user = access, refresh, &user
	return m, nil
}

// SetSession stores a full session (login). Observers receive the new
// identity.
func (m *SessionManager) SetSession(accessToken, refreshToken string, user store.UserInfo) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	m.mu.Lock()
	if err := m.storage.Replace(map[string]string{
		keyAccessToken:  accessToken,
		keyRefreshToken: refreshToken,
		keyUser:         string(userJSON),
	}); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("persisting session: %w", err)
	}
	m.access, m.refresh = accessToken, refreshToken
	m.user = &user
	notify := m.notificationLocked()
	m.mu.Unlock()

	notify()
	return nil
}

// SetAccessToken replaces only the access token (refresh exchange). The
// refresh token and identity snapshot are carried forward unchanged.
func (m *SessionManager) SetAccessToken(accessToken string) error {
	m.mu.Lock()
	if m.refresh == "" || m.user == nil {
		m.mu.Unlock()
		return fmt.Errorf("no session to update")
	}

	userJSON, err := json.Marshal(m.user)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := m.storage.Replace(map[string]string{
		keyAccessToken:  accessToken,
		keyRefreshToken: m.refresh,
		keyUser:         string(userJSON),
	}); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("persisting session: %w", err)
	}
	m.access = accessToken
	notify := m.notificationLocked()
	m.mu.Unlock()

	notify()
	return nil
}

// Clear drops the session (logout or fatal auth failure). Observers
// receive nil.
func (m *SessionManager) Clear() error {
	m.mu.Lock()
	if err := m.storage.Replace(map[string]string{}); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("clearing session: %w", err)
	}
	m.access, m.refresh, m.user = "", "", nil
	notify := m.notificationLocked()
	m.mu.Unlock()

	notify()
	return nil
}

// AccessToken returns the current access token, or empty when anonymous.
func (m *SessionManager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

// RefreshToken returns the current refresh token, or empty when anonymous.
func (m *SessionManager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

// CurrentUser returns the identity snapshot, or nil when anonymous.
func (m *SessionManager) CurrentUser() *store.UserInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether an access token is present and its
// embedded expiry lies in the future. The token is decoded locally
// without signature verification; this is a cheap client-side heuristic,
// not a security check. Authorization always happens server-side.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	token := m.access
	m.mu.RUnlock()

	if token == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.After(time.Now())
}

// Subscribe registers an identity observer and returns an unsubscribe
// function.
func (m *SessionManager) Subscribe(fn func(*store.UserInfo)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// notificationLocked snapshots the subscriber list and current identity
// and returns a closure that delivers the notification. Caller must hold
// mu and invoke the closure after releasing it.
func (m *SessionManager) notificationLocked() func() {
	var snapshot *store.UserInfo
	if m.user != nil {
		u := *m.user
		snapshot = &u
	}

	fns := make([]func(*store.UserInfo), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}

	return func() {
		for _, fn := range fns {
			fn(snapshot)
		}
	}
}
