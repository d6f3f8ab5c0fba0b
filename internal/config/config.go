// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package config loads and validates the application configuration from
// defaults, an optional YAML file, and environment variables, in that
// order of precedence (environment wins).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Logging       LoggingConfig       `koanf:"logging"`
	Security      SecurityConfig      `koanf:"security"`
	SMS           SMSConfig           `koanf:"sms"`
	Email         EmailConfig         `koanf:"email"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Reports       ReportsConfig       `koanf:"reports"`
	API           APIConfig           `koanf:"api"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds the embedded DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
	SeedDemo  bool   `koanf:"seed_demo"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds authentication and request-limiting settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// SMSConfig holds the Hormuud gateway client settings.
type SMSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	BaseURL       string        `koanf:"base_url"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	SenderID      string        `koanf:"sender_id"`
	Timeout       time.Duration `koanf:"timeout"`
	RetryAttempts int           `koanf:"retry_attempts"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	BulkChunkSize int           `koanf:"bulk_chunk_size"`
	RatePerSecond int           `koanf:"rate_per_second"`
	CharLimit     int           `koanf:"char_limit"`
}

// EmailConfig holds outbound SMTP settings.
type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	UseTLS   bool   `koanf:"use_tls"`
}

// NotificationsConfig holds the delivery pipeline settings.
type NotificationsConfig struct {
	Workers       int           `koanf:"workers"`
	QueueSize     int           `koanf:"queue_size"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryBaseWait time.Duration `koanf:"retry_base_wait"`
	RetryMaxWait  time.Duration `koanf:"retry_max_wait"`
}

// SchedulerConfig holds background job settings. Schedules use standard
// five-field cron expressions.
type SchedulerConfig struct {
	Enabled           bool          `koanf:"enabled"`
	CheckInterval     time.Duration `koanf:"check_interval"`
	MaxConcurrentJobs int           `koanf:"max_concurrent_jobs"`
	JobTimeout        time.Duration `koanf:"job_timeout"`
	OverdueSchedule   string        `koanf:"overdue_schedule"`
	LowStockSchedule  string        `koanf:"low_stock_schedule"`
	NotifyUsers       []string      `koanf:"notify_users"`
	NotifyRoles       []string      `koanf:"notify_roles"`
}

// ReportsConfig holds report rendering settings.
type ReportsConfig struct {
	CurrencySymbol string `koanf:"currency_symbol"`
	Company        string `koanf:"company"`
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// Validate checks the configuration for values that would prevent the
// server from starting correctly.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.IsProduction() && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	if c.SMS.Enabled {
		if c.SMS.BaseURL == "" {
			return fmt.Errorf("sms.base_url is required when sms.enabled is true")
		}
		if c.SMS.Username == "" || c.SMS.Password == "" {
			return fmt.Errorf("sms.username and sms.password are required when sms.enabled is true")
		}
	}
	if c.SMS.BulkChunkSize < 1 {
		return fmt.Errorf("sms.bulk_chunk_size must be at least 1, got %d", c.SMS.BulkChunkSize)
	}
	if c.Email.Enabled && c.Email.Host == "" {
		return fmt.Errorf("email.host is required when email.enabled is true")
	}
	if c.Notifications.Workers < 1 {
		return fmt.Errorf("notifications.workers must be at least 1, got %d", c.Notifications.Workers)
	}
	if c.Scheduler.MaxConcurrentJobs < 1 {
		return fmt.Errorf("scheduler.max_concurrent_jobs must be at least 1, got %d", c.Scheduler.MaxConcurrentJobs)
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be between 1 and api.max_page_size (%d), got %d",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
