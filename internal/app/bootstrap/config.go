// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dalemusser/playform/internal/app/system/paging"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Playform.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, fanout_backend, etc.
//   - Environment variables: PLAYFORM_MONGO_URI, PLAYFORM_FANOUT_BACKEND, etc.
//   - Command-line flags: --mongo_uri, --fanout_backend, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "playform", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "playform-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Fan-out
	{Name: "fanout_backend", Default: FanoutMemory, Desc: "Chat fan-out backend: 'memory' or 'redis'"},
	{Name: "redis_url", Default: "", Desc: "Redis URL for the redis fan-out backend (e.g., redis://localhost:6379/0)"},

	// Chat
	{Name: "chat_page_size", Default: paging.DefaultPageSize, Desc: "Default chat history page size"},
	{Name: "chat_send_rate", Default: "5", Desc: "Chat messages per second allowed per user"},
	{Name: "chat_send_burst", Default: 10, Desc: "Chat message burst allowed per user"},
	{Name: "ws_send_buffer", Default: 64, Desc: "Outbound frames buffered per WebSocket before the client is dropped"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, PLAYFORM_* for app) and flags,
// with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PLAYFORM", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	sendRate, err := strconv.ParseFloat(appValues.String("chat_send_rate"), 64)
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("chat_send_rate: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		FanoutBackend: appValues.String("fanout_backend"),
		RedisURL:      appValues.String("redis_url"),

		ChatPageSize:  appValues.Int("chat_page_size"),
		ChatSendRate:  sendRate,
		ChatSendBurst: appValues.Int("chat_send_burst"),
		WSSendBuffer:  appValues.Int("ws_send_buffer"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Mistakes are caught here, before any connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	switch appCfg.FanoutBackend {
	case FanoutMemory:
	case FanoutRedis:
		if appCfg.RedisURL == "" {
			return fmt.Errorf("fanout_backend %q requires redis_url to be set", FanoutRedis)
		}
	default:
		return fmt.Errorf("fanout_backend must be %q or %q, got %q", FanoutMemory, FanoutRedis, appCfg.FanoutBackend)
	}

	if appCfg.ChatPageSize < 1 || appCfg.ChatPageSize > paging.MaxPageSize {
		return fmt.Errorf("chat_page_size must be between 1 and %d", paging.MaxPageSize)
	}
	if appCfg.ChatSendRate < 0 || appCfg.ChatSendBurst < 1 {
		return fmt.Errorf("chat_send_rate must be >= 0 and chat_send_burst >= 1")
	}
	if appCfg.WSSendBuffer < 1 {
		return fmt.Errorf("ws_send_buffer must be at least 1")
	}

	return nil
}
