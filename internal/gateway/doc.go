// Package gateway implements the session-gateway HTTP API.
//
// # Endpoints
//
//	POST /auth/login       authenticate, returns access+refresh tokens and user
//	POST /auth/refresh     exchange a registered refresh token for a new access token
//	POST /auth/logout      revoke the presented access token (bearer, gated)
//	GET  /auth/me          current identity, re-read from the store (gated)
//	GET  /protected/data   sample protected payload (gated)
//	GET  /protected/admin  user list and stats (gated, admin role)
//	GET  /public/info      static API descriptor
//	GET  /health           liveness check
//
// All other paths return a JSON 404. Error bodies have the shape
// {"error": "..."} with deliberately generic messages: login failures do
// not reveal whether the username exists, and gated-endpoint rejections do
// not distinguish revoked from invalid tokens.
package gateway
