// ABOUTME: HTTP middleware gating protected endpoints on bearer token verification
// ABOUTME: Extracts the Authorization header, verifies claims, and enforces roles

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// ExtractBearerToken extracts a bearer token from an Authorization header
// value. Returns ErrMissingToken when the header is absent, malformed, or
// carries an empty token.
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// RequireAuth creates an HTTP middleware that verifies the bearer access
// token and attaches the claims to the request context.
//
// All verification failures surface the same generic 403 body; the response
// must not tell a caller whether a token was revoked, forged, or expired.
// The distinction is logged server-side only.
func RequireAuth(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "token not provided")
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				logger.Info("access token rejected",
					"path", r.URL.Path,
					"reason", err)
				writeAuthError(w, http.StatusForbidden, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole creates an HTTP middleware that requires the authenticated
// claims to carry the given role. Must be used after RequireAuth.
// The role check uses the role embedded in the token, not a store lookup.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := FromContext(r.Context())
			if claims == nil {
				writeAuthError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if claims.Role != role {
				writeAuthError(w, http.StatusForbidden, "access denied: "+role+" role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
