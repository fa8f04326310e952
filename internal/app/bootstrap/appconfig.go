// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, log level and
// CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: playform-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Fan-out configuration
	FanoutBackend string // "memory" (single process) or "redis"
	RedisURL      string // redis://host:6379/0; required when FanoutBackend is "redis"

	// Chat configuration
	ChatPageSize  int     // Default history page size
	ChatSendRate  float64 // Messages per second per user
	ChatSendBurst int     // Burst allowance per user
	WSSendBuffer  int     // Outbound frames buffered per WebSocket
}

const (
	FanoutMemory = "memory"
	FanoutRedis  = "redis"
)
