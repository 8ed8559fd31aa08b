// ABOUTME: JWT issuing and verification for access and refresh tokens
// ABOUTME: Uses HS256 signing with a single process-wide secret

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/2389/session-gateway/internal/store"
)

// Token errors
var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrRevokedToken   = errors.New("token revoked")
	ErrSecretTooShort = errors.New("jwt secret too short")
)

// MinSecretLength is the minimum allowed secret length in bytes.
// HS256 secrets shorter than the hash size weaken the HMAC.
const MinSecretLength = 32

// Token kinds carried in the "kind" claim. An access token is never
// accepted where a refresh token is expected and vice versa.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Default token lifetimes. Overridable via config, not per request.
const (
	DefaultAccessTTL  = time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims are the identity claims embedded in issued tokens.
// Access tokens carry the full public projection; refresh tokens
// carry only id and username.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer mints signed access and refresh tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer creates an Issuer with the given secret and lifetimes.
// Zero TTLs fall back to the defaults.
func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretTooShort, MinSecretLength, len(secret))
	}
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// IssueAccess mints a short-lived access token for the user.
func (i *Issuer) IssueAccess(user *store.User) (string, error) {
	return i.sign(Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Kind:     KindAccess,
	}, i.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the user.
func (i *Issuer) IssueRefresh(user *store.User) (string, error) {
	return i.sign(Claims{
		UserID:   user.ID,
		Username: user.Username,
		Kind:     KindRefresh,
	}, i.refreshTTL)
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verifier validates presented tokens against the process secret and the
// revocation/refresh registries.
type Verifier struct {
	secret   []byte
	registry *Registry
}

// NewVerifier creates a Verifier sharing the issuer's secret and the
// process registries.
func NewVerifier(secret []byte, registry *Registry) (*Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretTooShort, MinSecretLength, len(secret))
	}
	return &Verifier{secret: secret, registry: registry}, nil
}

// VerifyAccess validates an access token. The revocation check runs before
// any cryptographic work so revoked-but-well-formed tokens get a
// distinguishable rejection reason.
func (v *Verifier) VerifyAccess(tokenString string) (*Claims, error) {
	if v.registry.IsRevoked(tokenString) {
		return nil, ErrRevokedToken
	}

	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Kind != KindAccess {
		return nil, fmt.Errorf("%w: wrong token kind %q", ErrInvalidToken, claims.Kind)
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token. A cryptographically valid token
// absent from the refresh registry (already consumed or logged out) is
// rejected as invalid.
func (v *Verifier) VerifyRefresh(tokenString string) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Kind != KindRefresh {
		return nil, fmt.Errorf("%w: wrong token kind %q", ErrInvalidToken, claims.Kind)
	}
	if !v.registry.HasRefresh(tokenString) {
		return nil, fmt.Errorf("%w: refresh token not registered", ErrInvalidToken)
	}
	return claims, nil
}

func (v *Verifier) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
