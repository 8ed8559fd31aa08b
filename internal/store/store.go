// ABOUTME: UserStore interface and data types for session-gateway persistence
// ABOUTME: Defines User, UserInfo and the store interface for credential lookup

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested user does not exist
// or when no user matches the presented credentials.
var ErrNotFound = errors.New("not found")

// Role constants for user roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an identity record held by the store.
// Records are immutable once loaded; Password is the exact-match
// login secret and must never leave the store layer.
type User struct {
	ID       int64
	Username string
	Password string
	Email    string
	Role     string
}

// UserInfo is the public projection of a User. It is safe to embed in
// tokens and API responses because it never carries the password.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Info returns the public projection of the user.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// UserStore is the credential lookup interface used by the gateway.
// Implementations return ErrNotFound rather than an error for unknown
// users; callers translate absence into an authentication failure.
type UserStore interface {
	// GetUserByCredentials returns the user matching the exact
	// username/password pair, or ErrNotFound.
	GetUserByCredentials(ctx context.Context, username, password string) (*User, error)

	// GetUserByID returns the user with the given ID, or ErrNotFound.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// ListUsers returns all users ordered by ID.
	ListUsers(ctx context.Context) ([]*User, error)

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int, error)
}

// SeedUsers are the development accounts loaded into a fresh store.
var SeedUsers = []*User{
	{ID: 1, Username: "admin", Password: "admin123", Email: "admin@example.com", Role: RoleAdmin},
	{ID: 2, Username: "user", Password: "user123", Email: "user@example.com", Role: RoleUser},
}
