// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.WeChat.Token = "token"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with token", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.WeChat.Token = "" }, "WECHAT_TOKEN"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "PORT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "prod" }, "ENVIRONMENT"},
		{"menu without credentials", func(c *Config) { c.WeChat.CreateMenu = true }, "WECHAT_APPID"},
		{"menu without public url", func(c *Config) {
			c.WeChat.CreateMenu = true
			c.WeChat.AppID = "wx1"
			c.WeChat.AppSecret = "s"
		}, "PUBLIC_BASE_URL"},
		{"library url with path allowed", func(c *Config) { c.Library.BaseURL = "https://lib.example.edu/api" }, ""},
		{"library url bad scheme", func(c *Config) { c.Library.BaseURL = "ftp://lib" }, "HW_BASE_URL"},
		{"negative cache ttl", func(c *Config) { c.Library.CacheTTL = -time.Second }, "HW_CACHE_TTL"},
		{"cache disabled", func(c *Config) { c.Library.CacheTTL = 0 }, ""},
		{"api url with path", func(c *Config) { c.WeChat.APIBaseURL = "https://api.weixin.qq.com/cgi-bin" }, "WECHAT_API_BASE_URL"},
		{"retention below count", func(c *Config) { c.Recommend.HistoryRetention = 2 }, "RETENTION"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "0 10 1,16" }, "SCHEDULE_CRON"},
		{"bad cron ignored when disabled", func(c *Config) {
			c.Schedule.Enabled = false
			c.Schedule.Cron = "nope"
		}, ""},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "SCHEDULE_TIMEZONE"},
		{"short secret in production", func(c *Config) { c.Server.Environment = "production" }, "SECRET_KEY"},
		{"wildcard cors in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.SessionSecret = strings.Repeat("x", 32)
			c.Security.CORSOrigins = []string{"*"}
		}, "CORS_ORIGINS"},
		{"badger session without path", func(c *Config) {
			c.Security.SessionStore = "badger"
			c.Security.SessionStorePath = ""
		}, "SESSION_STORE_PATH"},
		{"unknown conversation store", func(c *Config) { c.WeChat.ConversationStore = "redis" }, "WECHAT_CONVERSATION_STORE"},
		{"short idle timeout", func(c *Config) { c.WeChat.ConversationIdleTimeout = time.Second }, "IDLE_TIMEOUT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"zero audit retention", func(c *Config) { c.Audit.RetentionDays = 0 }, "AUDIT_RETENTION_DAYS"},
		{"audit disabled skips checks", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.BufferSize = 0
		}, ""},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"backup of memory database", func(c *Config) {
			c.Backup.Enabled = true
			c.Database.Path = ":memory:"
		}, ":memory:"},
		{"backup retention zero", func(c *Config) {
			c.Backup.Enabled = true
			c.Database.Path = "/data/readmark.duckdb"
			c.Backup.RetentionCount = 0
		}, "BACKUP_RETENTION_COUNT"},
		{"backup compression out of range", func(c *Config) {
			c.Backup.Enabled = true
			c.Database.Path = "/data/readmark.duckdb"
			c.Backup.CompressionLevel = 12
		}, "BACKUP_COMPRESSION_LEVEL"},
		{"backup enabled", func(c *Config) {
			c.Backup.Enabled = true
			c.Database.Path = "/data/readmark.duckdb"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestScheduleLocation(t *testing.T) {
	loc, err := ScheduleConfig{Timezone: "Asia/Shanghai"}.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Asia/Shanghai" {
		t.Errorf("Location() = %v", loc)
	}
	if loc, _ := (ScheduleConfig{}).Location(); loc != time.Local {
		t.Errorf("empty timezone = %v, want Local", loc)
	}
}
