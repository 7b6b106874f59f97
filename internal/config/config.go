// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package config

import (
	"strings"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/readmark/config.yaml)
//  3. Environment variables
//
// Sections:
//   - Server: HTTP listener and the public URL used in menus and OAuth redirects
//   - Database: DuckDB file and resource limits
//   - WeChat: official account credentials, platform endpoints, conversation handling
//   - Library: loan-history API of the library system
//   - Recommend: selector sizing and history retention
//   - Schedule: cron expression and concurrency of the push job
//   - Security: web sessions, rate limits, CORS, admin identities
//   - Logging: level and output format
//   - Audit: account and moderation audit trail
//   - Backup: scheduled database snapshots
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	WeChat    WeChatConfig    `koanf:"wechat"`
	Library   LibraryConfig   `koanf:"library"`
	Recommend RecommendConfig `koanf:"recommend"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Audit     AuditConfig     `koanf:"audit"`
	Backup    BackupConfig    `koanf:"backup"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production

	// PublicBaseURL is the externally reachable origin, e.g. https://read.example.edu.
	// The menu's view button and the OAuth redirect are derived from it.
	PublicBaseURL string `koanf:"public_base_url"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// WeChatConfig holds official account settings.
type WeChatConfig struct {
	Token     string `koanf:"token"` // shared secret for webhook signatures
	AppID     string `koanf:"app_id"`
	AppSecret string `koanf:"app_secret"`

	// RedirectURI overrides the OAuth callback. Defaults to PublicBaseURL + /wechat_redirect.
	RedirectURI string `koanf:"redirect_uri"`
	CreateMenu  bool   `koanf:"create_menu"`

	APIBaseURL  string `koanf:"api_base_url"`
	OpenBaseURL string `koanf:"open_base_url"`

	PushRatePerSecond float64 `koanf:"push_rate_per_second"`

	// BindSingleShot returns a conversation to idle after any bind attempt,
	// valid or not. When false only a successful bind leaves the awaiting state.
	BindSingleShot bool `koanf:"bind_single_shot"`

	ConversationIdleTimeout time.Duration `koanf:"conversation_idle_timeout"`
	ConversationStore       string        `koanf:"conversation_store"` // memory or badger
	ConversationStorePath   string        `koanf:"conversation_store_path"`
}

// LibraryConfig holds loan-history API settings.
type LibraryConfig struct {
	BaseURL  string        `koanf:"base_url"`
	AppID    string        `koanf:"app_id"`
	AppKey   string        `koanf:"app_key"`
	Timeout  time.Duration `koanf:"timeout"`
	PageSize int           `koanf:"page_size"`
	MaxPages int           `koanf:"max_pages"`

	// CacheTTL keeps complete loan histories in memory. Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// RecommendConfig holds selector sizing.
type RecommendConfig struct {
	Count            int `koanf:"count"`
	CandidatePool    int `koanf:"candidate_pool"`
	HistoryRetention int `koanf:"history_retention"`
}

// ScheduleConfig holds the scheduled recommendation push settings.
type ScheduleConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Cron             string        `koanf:"cron"`
	Timezone         string        `koanf:"timezone"`
	MaxConcurrent    int           `koanf:"max_concurrent"`
	ExecutionTimeout time.Duration `koanf:"execution_timeout"`
	PageSize         int           `koanf:"page_size"`
	MaxPages         int           `koanf:"max_pages"`
}

// SecurityConfig holds web session and request limiting settings.
type SecurityConfig struct {
	SessionSecret    string        `koanf:"session_secret"`
	SessionStore     string        `koanf:"session_store"` // memory or badger
	SessionStorePath string        `koanf:"session_store_path"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	CookieSecure     bool          `koanf:"cookie_secure"`

	RateLimitRequests int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`

	// AdminOpenIDs are granted the admin role in addition to readers flagged is_admin.
	AdminOpenIDs []string `koanf:"admin_openids"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// OAuthRedirectURI is the callback registered with the WeChat web OAuth flow.
func (c *Config) OAuthRedirectURI() string {
	if c.WeChat.RedirectURI != "" {
		return c.WeChat.RedirectURI
	}
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + "/wechat_redirect"
}

// LoginURL is where the menu's view button sends readers.
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + "/login"
}

// AuditConfig controls the audit trail of bindings, logins and moderation.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	BufferSize      int           `koanf:"buffer_size"`
	LogToStdout     bool          `koanf:"log_to_stdout"`
}

// BackupConfig controls database snapshots. Archives are written to Dir as
// gzip-compressed tarballs next to a JSON sidecar holding their checksums.
type BackupConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Dir      string        `koanf:"dir"`
	Interval time.Duration `koanf:"interval"`

	// RetentionCount is how many archives Prune keeps, newest first.
	RetentionCount   int `koanf:"retention_count"`
	CompressionLevel int `koanf:"compression_level"` // gzip level, 1-9
}
