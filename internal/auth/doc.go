// Package auth provides token issuance, verification, and revocation for
// session-gateway.
//
// # Token Model
//
// Two token kinds are minted, both HS256 JWTs signed with a single
// process-wide secret:
//
//   - Access tokens: short-lived (default 1 minute), carry the full public
//     identity projection (id, username, email, role). Presented as
//     "Authorization: Bearer <token>" on every protected request.
//
//   - Refresh tokens: long-lived (default 7 days), carry only id and
//     username. Exchangeable for a fresh access token while registered.
//
// A "kind" claim prevents token confusion: a refresh token is never
// accepted where an access token is expected and vice versa.
//
// # Registries
//
// The Registry holds the only server-side mutable auth state:
//
//   - Revoked access tokens (logout before natural expiry). Membership is a
//     strict override: a revoked token is rejected regardless of signature
//     and expiry, and the revocation check runs before any parsing.
//
//   - Live refresh tokens. A refresh token that is cryptographically valid
//     but absent from the registry has already been consumed or logged out
//     and is rejected.
//
// Both sets are process-local. A background sweeper trims naturally-expired
// entries; this is purely a memory bound, not a security mechanism.
//
// # Middleware
//
//	mux.Handle("/protected/data", auth.RequireAuth(verifier, logger)(handler))
//	mux.Handle("/protected/admin", auth.RequireAuth(verifier, logger)(auth.RequireRole("admin")(handler)))
//
// RequireAuth attaches verified Claims to the request context; handlers
// retrieve them with FromContext or MustFromContext.
package auth
