// Package config loads session-gateway configuration from YAML.
//
// Example:
//
//	server:
//	  http_addr: "localhost:3001"
//	auth:
//	  jwt_secret: "${SESSION_GATEWAY_JWT_SECRET}"
//	  access_ttl: "1m"
//	  refresh_ttl: "168h"
//	database:
//	  path: "/var/lib/session-gateway/users.db"
//	logging:
//	  level: "info"
//	  format: "text"
//
// ${VAR} references are expanded from the environment before parsing.
// Durations use Go syntax ("1m", "168h"). An empty database.path selects
// the in-memory seeded store.
package config
