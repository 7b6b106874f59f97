// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/readmark/internal/logging"
)

// minSessionSecretLength applies in production only.
const minSessionSecretLength = 32

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateWeChat(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	return c.validateBackup()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	if c.Server.PublicBaseURL != "" {
		if err := validateHTTPURL(c.Server.PublicBaseURL, "PUBLIC_BASE_URL", false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateWeChat() error {
	if c.WeChat.Token == "" {
		return fmt.Errorf("WECHAT_TOKEN is required")
	}
	if err := validateHTTPURL(c.WeChat.APIBaseURL, "WECHAT_API_BASE_URL", false); err != nil {
		return err
	}
	if err := validateHTTPURL(c.WeChat.OpenBaseURL, "WECHAT_OPEN_BASE_URL", false); err != nil {
		return err
	}
	if c.WeChat.CreateMenu && (c.WeChat.AppID == "" || c.WeChat.AppSecret == "") {
		return fmt.Errorf("WECHAT_APPID and WECHAT_SECRET are required when CREATE_MENU=true")
	}
	if c.WeChat.CreateMenu && c.Server.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required when CREATE_MENU=true")
	}
	if c.WeChat.RedirectURI != "" {
		if _, err := url.ParseRequestURI(c.WeChat.RedirectURI); err != nil {
			return fmt.Errorf("REDIRECT_URI is invalid: %w", err)
		}
	}
	if c.WeChat.PushRatePerSecond <= 0 {
		return fmt.Errorf("WECHAT_PUSH_RATE must be positive, got %v", c.WeChat.PushRatePerSecond)
	}
	if c.WeChat.ConversationIdleTimeout < time.Minute {
		return fmt.Errorf("WECHAT_CONVERSATION_IDLE_TIMEOUT must be at least 1m, got %v", c.WeChat.ConversationIdleTimeout)
	}
	return validateStoreKind(c.WeChat.ConversationStore, c.WeChat.ConversationStorePath, "WECHAT_CONVERSATION_STORE")
}

func (c *Config) validateLibrary() error {
	if err := validateHTTPURL(c.Library.BaseURL, "HW_BASE_URL", true); err != nil {
		return err
	}
	if c.Library.Timeout <= 0 {
		return fmt.Errorf("HW_TIMEOUT must be positive, got %v", c.Library.Timeout)
	}
	if c.Library.PageSize < 1 || c.Library.PageSize > 100 {
		return fmt.Errorf("HW_PAGE_SIZE must be between 1 and 100, got %d", c.Library.PageSize)
	}
	if c.Library.MaxPages < 1 {
		return fmt.Errorf("HW_MAX_PAGES must be at least 1, got %d", c.Library.MaxPages)
	}
	if c.Library.CacheTTL < 0 {
		return fmt.Errorf("HW_CACHE_TTL must not be negative, got %v", c.Library.CacheTTL)
	}
	if c.Library.AppID == "" || c.Library.AppKey == "" {
		logging.Warn().Msg("HW_APP_ID or HW_APP_KEY is empty; loan history requests will be rejected upstream")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.Count < 1 {
		return fmt.Errorf("RECOMMEND_COUNT must be at least 1, got %d", c.Recommend.Count)
	}
	if c.Recommend.CandidatePool < 1 {
		return fmt.Errorf("RECOMMEND_CANDIDATE_POOL must be at least 1, got %d", c.Recommend.CandidatePool)
	}
	if c.Recommend.HistoryRetention < c.Recommend.Count {
		return fmt.Errorf("RECOMMEND_HISTORY_RETENTION (%d) must not be below RECOMMEND_COUNT (%d)",
			c.Recommend.HistoryRetention, c.Recommend.Count)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if !c.Schedule.Enabled {
		return nil
	}
	if len(strings.Fields(c.Schedule.Cron)) != 5 {
		return fmt.Errorf("SCHEDULE_CRON must have 5 fields, got %q", c.Schedule.Cron)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE is invalid: %w", err)
	}
	if c.Schedule.MaxConcurrent < 1 {
		return fmt.Errorf("SCHEDULE_MAX_CONCURRENT must be at least 1, got %d", c.Schedule.MaxConcurrent)
	}
	if c.Schedule.ExecutionTimeout <= 0 {
		return fmt.Errorf("SCHEDULE_EXEC_TIMEOUT must be positive, got %v", c.Schedule.ExecutionTimeout)
	}
	if c.Schedule.PageSize < 1 || c.Schedule.MaxPages < 1 {
		return fmt.Errorf("SCHEDULE_PAGE_SIZE and SCHEDULE_MAX_PAGES must be at least 1")
	}
	return nil
}

// Location resolves the configured timezone. "Local" and "" both mean the
// process timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (c *Config) validateSecurity() error {
	if c.IsProduction() && len(c.Security.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("SECRET_KEY must be at least %d characters in production", minSessionSecretLength)
	}
	if c.Security.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m, got %v", c.Security.SessionTTL)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitRequests)
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
		}
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" && c.IsProduction() {
			return fmt.Errorf("CORS_ORIGINS must not contain * in production")
		}
	}
	return validateStoreKind(c.Security.SessionStore, c.Security.SessionStorePath, "SESSION_STORE")
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func validateStoreKind(kind, path, field string) error {
	switch kind {
	case "memory":
		return nil
	case "badger":
		if path == "" {
			return fmt.Errorf("%s_PATH is required when %s=badger", field, field)
		}
		return nil
	default:
		return fmt.Errorf("%s must be memory or badger, got %q", field, kind)
	}
}

// validateHTTPURL checks scheme and host. allowPath permits a base path such
// as /meta-local/api.
func validateHTTPURL(rawURL, fieldName string, allowPath bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if !allowPath && parsed.Path != "" && parsed.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsed.Path)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1, got %d", c.Audit.RetentionDays)
	}
	if c.Audit.CleanupInterval < time.Minute {
		return fmt.Errorf("AUDIT_CLEANUP_INTERVAL must be at least 1m, got %v", c.Audit.CleanupInterval)
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1, got %d", c.Audit.BufferSize)
	}
	return nil
}

func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when backups are enabled")
	}
	if c.Database.Path == ":memory:" {
		return fmt.Errorf("backups require a file-backed database, DUCKDB_PATH is :memory:")
	}
	if c.Backup.Interval < time.Hour {
		return fmt.Errorf("BACKUP_INTERVAL must be at least 1h, got %v", c.Backup.Interval)
	}
	if c.Backup.RetentionCount < 1 {
		return fmt.Errorf("BACKUP_RETENTION_COUNT must be at least 1, got %d", c.Backup.RetentionCount)
	}
	if c.Backup.CompressionLevel < 1 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("BACKUP_COMPRESSION_LEVEL must be between 1 and 9, got %d", c.Backup.CompressionLevel)
	}
	return nil
}
