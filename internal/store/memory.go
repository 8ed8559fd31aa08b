// ABOUTME: In-memory UserStore implementation for tests and development
// ABOUTME: Holds an immutable user slice guarded by a read-write mutex

package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory UserStore. User records are immutable after
// construction, but the store is still mutex-guarded so it stays safe if a
// future caller adds mutation.
type MemoryStore struct {
	mu    sync.RWMutex
	users []*User
}

// NewMemoryStore creates a MemoryStore holding the given users.
// Pass store.SeedUsers for the standard development accounts.
func NewMemoryStore(users []*User) *MemoryStore {
	copied := make([]*User, len(users))
	copy(copied, users)
	return &MemoryStore{users: copied}
}

// GetUserByCredentials returns the user matching the exact username/password
// pair. Comparison is exact-match with no normalization.
func (m *MemoryStore) GetUserByCredentials(_ context.Context, username, password string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username && u.Password == password {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByID returns the user with the given ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns all users ordered by ID.
func (m *MemoryStore) ListUsers(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*User, len(m.users))
	copy(out, m.users)
	return out, nil
}

// CountUsers returns the total number of users.
func (m *MemoryStore) CountUsers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}
