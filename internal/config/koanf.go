// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/readmark/config.yaml",
	"/etc/readmark/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        80,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/readmark.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		WeChat: WeChatConfig{
			APIBaseURL:              "https://api.weixin.qq.com",
			OpenBaseURL:             "https://open.weixin.qq.com",
			PushRatePerSecond:       20,
			BindSingleShot:          false,
			ConversationIdleTimeout: 30 * time.Minute,
			ConversationStore:       "memory",
			ConversationStorePath:   "/data/conversations",
		},
		Library: LibraryConfig{
			BaseURL:  "https://libopac.nwafu.edu.cn/meta-local/api",
			Timeout:  10 * time.Second,
			PageSize: 10,
			MaxPages: 1,
			CacheTTL: 10 * time.Minute,
		},
		Recommend: RecommendConfig{
			Count:            4,
			CandidatePool:    10,
			HistoryRetention: 20,
		},
		Schedule: ScheduleConfig{
			Enabled:          true,
			Cron:             "0 10 1,16 * *",
			Timezone:         "Local",
			MaxConcurrent:    4,
			ExecutionTimeout: 30 * time.Second,
			PageSize:         20,
			MaxPages:         1,
		},
		Security: SecurityConfig{
			SessionStore:      "memory",
			SessionStorePath:  "/data/sessions",
			SessionTTL:        24 * time.Hour,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{},
			AdminOpenIDs:      []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled:         true,
			RetentionDays:   180,
			CleanupInterval: 24 * time.Hour,
			BufferSize:      1000,
		},
		Backup: BackupConfig{
			Enabled:          false,
			Dir:              "/data/backups",
			Interval:         24 * time.Hour,
			RetentionCount:   7,
			CompressionLevel: 6,
		},
	}
}

// LoadWithKoanf loads configuration with precedence ENV > file > defaults,
// then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// WECHAT_APPID -> wechat.app_id, HW_APP_KEY -> library.app_key
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.admin_openids",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config keys.
// Short names used by existing deployments (WECHAT_SECRET, HW_APP_KEY,
// SECRET_KEY, PORT) are listed alongside the longer forms.
var envMappings = map[string]string{
	// Server
	"port":            "server.port",
	"http_port":       "server.port",
	"http_host":       "server.host",
	"http_timeout":    "server.timeout",
	"environment":     "server.environment",
	"public_base_url": "server.public_base_url",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// WeChat
	"wechat_token":                     "wechat.token",
	"wechat_appid":                     "wechat.app_id",
	"wechat_secret":                    "wechat.app_secret",
	"redirect_uri":                     "wechat.redirect_uri",
	"create_menu":                      "wechat.create_menu",
	"wechat_api_base_url":              "wechat.api_base_url",
	"wechat_open_base_url":             "wechat.open_base_url",
	"wechat_push_rate":                 "wechat.push_rate_per_second",
	"wechat_bind_single_shot":          "wechat.bind_single_shot",
	"wechat_conversation_idle_timeout": "wechat.conversation_idle_timeout",
	"wechat_conversation_store":        "wechat.conversation_store",
	"wechat_conversation_store_path":   "wechat.conversation_store_path",

	// Library loan-history API
	"hw_base_url":  "library.base_url",
	"hw_app_id":    "library.app_id",
	"hw_app_key":   "library.app_key",
	"hw_timeout":   "library.timeout",
	"hw_page_size": "library.page_size",
	"hw_max_pages": "library.max_pages",
	"hw_cache_ttl": "library.cache_ttl",

	// Recommendation
	"recommend_count":             "recommend.count",
	"recommend_candidate_pool":    "recommend.candidate_pool",
	"recommend_history_retention": "recommend.history_retention",

	// Schedule
	"schedule_enabled":        "schedule.enabled",
	"schedule_cron":           "schedule.cron",
	"schedule_timezone":       "schedule.timezone",
	"schedule_max_concurrent": "schedule.max_concurrent",
	"schedule_exec_timeout":   "schedule.execution_timeout",
	"schedule_page_size":      "schedule.page_size",
	"schedule_max_pages":      "schedule.max_pages",

	// Security
	"secret_key":          "security.session_secret",
	"session_store":       "security.session_store",
	"session_store_path":  "security.session_store_path",
	"session_ttl":         "security.session_ttl",
	"cookie_secure":       "security.cookie_secure",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"admin_openids":       "security.admin_openids",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Audit trail
	"audit_enabled":          "audit.enabled",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_log_to_stdout":    "audit.log_to_stdout",

	// Backups
	"backup_enabled":           "backup.enabled",
	"backup_dir":               "backup.dir",
	"backup_interval":          "backup.interval",
	"backup_retention_count":   "backup.retention_count",
	"backup_compression_level": "backup.compression_level",
}

// envTransformFunc returns the config key for an environment variable, or ""
// to skip variables that do not belong to Readmark.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
