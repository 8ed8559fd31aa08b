// ABOUTME: HTTP JSON API handlers for login, refresh, logout, and protected data
// ABOUTME: Implements the token lifecycle endpoints gated by the auth middleware

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2389/session-gateway/internal/auth"
	"github.com/2389/session-gateway/internal/store"
)

// Version is the API version reported by /public/info.
const Version = "1.0.0"

// LoginRequest is the JSON request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	Message      string         `json:"message"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         store.UserInfo `json:"user"`
}

// RefreshRequest is the JSON request body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the JSON response for a successful refresh.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// LogoutRequest is the optional JSON request body for POST /auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// ProtectedDataResponse is the JSON response for GET /protected/data.
type ProtectedDataResponse struct {
	Message string        `json:"message"`
	Data    ProtectedData `json:"data"`
}

// ProtectedData echoes the requester identity with the payload.
type ProtectedData struct {
	Timestamp  string `json:"timestamp"`
	User       string `json:"user"`
	SecretData string `json:"secretData"`
}

// AdminResponse is the JSON response for GET /protected/admin.
type AdminResponse struct {
	Message string    `json:"message"`
	Data    AdminData `json:"data"`
}

// AdminData aggregates the user list and server stats.
type AdminData struct {
	Users []store.UserInfo `json:"users"`
	Stats AdminStats       `json:"stats"`
}

// AdminStats reports user count and live refresh token count.
type AdminStats struct {
	TotalUsers   int `json:"totalUsers"`
	ActiveTokens int `json:"activeTokens"`
}

// PublicInfoResponse is the JSON response for GET /public/info.
type PublicInfoResponse struct {
	Message     string `json:"message"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// handleLogin handles POST /auth/login requests.
// Failed lookups produce an undifferentiated 401 so the response never
// reveals whether the username exists.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		g.sendJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := g.store.GetUserByCredentials(r.Context(), req.Username, req.Password)
	if errors.Is(err, store.ErrNotFound) {
		g.logger.Info("login rejected", "username", req.Username)
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		g.logger.Error("credential lookup failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	accessToken, err := g.issuer.IssueAccess(user)
	if err != nil {
		g.logger.Error("issuing access token failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	refreshToken, err := g.issuer.IssueRefresh(user)
	if err != nil {
		g.logger.Error("issuing refresh token failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.registry.RegisterRefresh(refreshToken, time.Now().Add(g.issuer.RefreshTTL()))

	g.logger.Info("login successful", "username", user.Username)

	g.sendJSON(w, http.StatusOK, LoginResponse{
		Message:      "login successful",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Info(),
	})
}

// handleRefresh handles POST /auth/refresh requests.
// The refresh token is verified against signature, expiry, and registry
// membership. Expired tokens are evicted from the registry as cleanup.
// On success only a new access token is issued; the refresh token is
// not rotated.
func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		g.sendJSONError(w, http.StatusUnauthorized, "refresh token not provided")
		return
	}

	claims, err := g.verifier.VerifyRefresh(req.RefreshToken)
	if errors.Is(err, auth.ErrExpiredToken) {
		g.registry.RemoveRefresh(req.RefreshToken)
		g.logger.Info("refresh token expired, evicted from registry")
		g.sendJSONError(w, http.StatusForbidden, "refresh token expired")
		return
	}
	if err != nil {
		g.logger.Info("refresh token rejected", "reason", err)
		g.sendJSONError(w, http.StatusForbidden, "refresh token invalid")
		return
	}

	// Refresh claims carry only id and username; re-read the store to
	// rebuild the full projection for the new access token.
	user, err := g.store.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		g.registry.RemoveRefresh(req.RefreshToken)
		g.sendJSONError(w, http.StatusForbidden, "refresh token invalid")
		return
	}
	if err != nil {
		g.logger.Error("user lookup failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	accessToken, err := g.issuer.IssueAccess(user)
	if err != nil {
		g.logger.Error("issuing access token failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.logger.Info("token refreshed", "username", user.Username)

	g.sendJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

// handleLogout handles POST /auth/logout requests. Runs behind RequireAuth.
// The presented access token is revoked unconditionally; a refresh token
// supplied in the body is removed from the refresh registry.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims := auth.MustFromContext(r.Context())

	// The middleware already validated the header, so extraction cannot fail.
	accessToken, _ := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	g.registry.RevokeAccess(accessToken, claims.ExpiresAt.Time)

	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		g.registry.RemoveRefresh(req.RefreshToken)
	}

	g.logger.Info("user logged out", "username", claims.Username)

	g.sendJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

// handleMe handles GET /auth/me requests. Runs behind RequireAuth.
// Unlike the other gated endpoints, it re-reads the store by the ID in the
// verified claims rather than trusting the token's snapshot.
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims := auth.MustFromContext(r.Context())

	user, err := g.store.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		g.logger.Error("user lookup failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.sendJSON(w, http.StatusOK, user.Info())
}

// handleProtectedData handles GET /protected/data requests. Runs behind RequireAuth.
func (g *Gateway) handleProtectedData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims := auth.MustFromContext(r.Context())

	g.sendJSON(w, http.StatusOK, ProtectedDataResponse{
		Message: "protected data",
		Data: ProtectedData{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			User:       claims.Username,
			SecretData: "this information is only available to authenticated users",
		},
	})
}

// handleAdmin handles GET /protected/admin requests.
// Runs behind RequireAuth and RequireRole("admin").
func (g *Gateway) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	users, err := g.store.ListUsers(r.Context())
	if err != nil {
		g.logger.Error("listing users failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	infos := make([]store.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, u.Info())
	}

	g.sendJSON(w, http.StatusOK, AdminResponse{
		Message: "admin panel",
		Data: AdminData{
			Users: infos,
			Stats: AdminStats{
				TotalUsers:   len(infos),
				ActiveTokens: g.registry.ActiveRefreshCount(),
			},
		},
	})
}

// handlePublicInfo handles GET /public/info requests. No authentication.
func (g *Gateway) handlePublicInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.sendJSON(w, http.StatusOK, PublicInfoResponse{
		Message:     "public information",
		Version:     Version,
		Description: "session-gateway JWT bearer token API",
	})
}

// handleHealth handles GET /health requests. No authentication.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleNotFound answers all unmatched paths with a JSON 404.
func (g *Gateway) handleNotFound(w http.ResponseWriter, r *http.Request) {
	g.sendJSONError(w, http.StatusNotFound, "endpoint not found")
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
