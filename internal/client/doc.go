// Package client implements the session-gateway API client with
// transparent session continuity.
//
// # Components
//
//   - SessionManager: persists the access token, refresh token, and
//     identity snapshot as one unit in a Storage backend, and notifies
//     subscribed observers on every session transition.
//
//   - Transport: an http.RoundTripper that attaches the bearer token to
//     every non-auth, non-public request. On a 401 or 403 it performs at
//     most one refresh exchange — concurrent failures share a single
//     in-flight exchange via singleflight — and retries the original
//     request exactly once with the new token.
//
//   - Client: typed methods over the gateway endpoints (Login, Logout,
//     Refresh, Me, ProtectedData, AdminPanel, PublicInfo, Health).
//
// # Usage
//
//	session, _ := client.NewSessionManager(client.NewFileStorage(path))
//	c := client.New("http://localhost:3001", session)
//
//	if _, err := c.Login(ctx, "admin", "admin123"); err != nil {
//		return err
//	}
//	data, err := c.ProtectedData(ctx) // retried transparently across expiry
//
// When renewal is impossible (no refresh token, or the exchange fails),
// the session is cleared and observers receive a nil identity; that is
// the client-side signal to route back to an unauthenticated state.
package client
