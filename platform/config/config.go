// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetJWTRefreshSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetDigestRecipients() []string
}

// RedisConfig provides settings for the asynq task queue.
type RedisConfig interface {
	GetRedisURL() string
}

// TwilioConfig provides settings for the Twilio SMS client.
type TwilioConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	GetTwilioStatusCallbackURL() string
	GetSMSSendsPerMinute() int
	IsTwilioEnabled() bool
}

// AttomConfig provides settings for the ATTOM property data API.
type AttomConfig interface {
	GetAttomBaseURL() string
	GetAttomAPIKey() string
	GetAttomRequestsPerSecond() float64
	IsAttomEnabled() bool
}

// SkipTraceConfig provides settings for the skip trace provider.
type SkipTraceConfig interface {
	GetSkipTraceURL() string
	GetSkipTraceAPIKey() string
	GetSkipTraceRequestsPerSecond() float64
	GetSkipTraceConcurrency() int
	IsSkipTraceEnabled() bool
}

// IngestConfig provides settings for the county and foreclosure ingesters.
type IngestConfig interface {
	GetCountyPortalURL() string
	GetForeclosureFeedURL() string
	GetAutoLeadScoreThreshold() int
}

// ScoringConfig provides settings for the lead scoring engine.
type ScoringConfig interface {
	GetHotLeadThreshold() int
}

// AnalyzerConfig provides settings for the deal analyzers.
type AnalyzerConfig interface {
	GetRepairCostTablePath() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketImportSnapshots() string
	GetMinioBucketExportArchives() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                        string
	HTTPAddr                   string
	DatabaseURL                string
	RedisURL                   string
	JWTAccessSecret            string
	JWTRefreshSecret           string
	AccessTokenTTL             time.Duration
	RefreshTokenTTL            time.Duration
	CORSAllowAll               bool
	CORSOrigins                []string
	CORSAllowCreds             bool
	AppBaseURL                 string
	EmailEnabled               bool
	SMTPHost                   string
	SMTPPort                   int
	SMTPUsername               string
	SMTPPassword               string
	EmailFromName              string
	EmailFromAddress           string
	DigestRecipients           []string
	TwilioAccountSID           string
	TwilioAuthToken            string
	TwilioFromNumber           string
	TwilioStatusCallbackURL    string
	SMSSendsPerMinute          int
	AttomBaseURL               string
	AttomAPIKey                string
	AttomRequestsPerSecond     float64
	SkipTraceURL               string
	SkipTraceAPIKey            string
	SkipTraceRequestsPerSecond float64
	SkipTraceConcurrency       int
	CountyPortalURL            string
	ForeclosureFeedURL         string
	AutoLeadScoreThreshold     int
	HotLeadThreshold           int
	RepairCostTablePath        string
	MinIOEndpoint              string
	MinIOAccessKey             string
	MinIOSecretKey             string
	MinIOUseSSL                bool
	MinioBucketImportSnapshots string
	MinioBucketExportArchives  string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetJWTRefreshSecret() string       { return c.JWTRefreshSecret }
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string         { return c.AppBaseURL }
func (c *Config) GetDigestRecipients() []string { return c.DigestRecipients }

// RedisConfig implementation
func (c *Config) GetRedisURL() string { return c.RedisURL }

// TwilioConfig implementation
func (c *Config) GetTwilioAccountSID() string        { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string         { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string        { return c.TwilioFromNumber }
func (c *Config) GetTwilioStatusCallbackURL() string { return c.TwilioStatusCallbackURL }
func (c *Config) GetSMSSendsPerMinute() int          { return c.SMSSendsPerMinute }
func (c *Config) IsTwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// AttomConfig implementation
func (c *Config) GetAttomBaseURL() string             { return c.AttomBaseURL }
func (c *Config) GetAttomAPIKey() string              { return c.AttomAPIKey }
func (c *Config) GetAttomRequestsPerSecond() float64  { return c.AttomRequestsPerSecond }
func (c *Config) IsAttomEnabled() bool                { return c.AttomAPIKey != "" }

// SkipTraceConfig implementation
func (c *Config) GetSkipTraceURL() string                { return c.SkipTraceURL }
func (c *Config) GetSkipTraceAPIKey() string             { return c.SkipTraceAPIKey }
func (c *Config) GetSkipTraceRequestsPerSecond() float64 { return c.SkipTraceRequestsPerSecond }
func (c *Config) GetSkipTraceConcurrency() int           { return c.SkipTraceConcurrency }
func (c *Config) IsSkipTraceEnabled() bool {
	return c.SkipTraceURL != "" && c.SkipTraceAPIKey != ""
}

// IngestConfig implementation
func (c *Config) GetCountyPortalURL() string     { return c.CountyPortalURL }
func (c *Config) GetForeclosureFeedURL() string  { return c.ForeclosureFeedURL }
func (c *Config) GetAutoLeadScoreThreshold() int { return c.AutoLeadScoreThreshold }

// ScoringConfig implementation
func (c *Config) GetHotLeadThreshold() int { return c.HotLeadThreshold }

// AnalyzerConfig implementation
func (c *Config) GetRepairCostTablePath() string { return c.RepairCostTablePath }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketImportSnapshots() string {
	return c.MinioBucketImportSnapshots
}
func (c *Config) GetMinioBucketExportArchives() string {
	return c.MinioBucketExportArchives
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		RedisURL:                   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTAccessSecret:            getEnv("JWT_ACCESS_SECRET", ""),
		JWTRefreshSecret:           getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:             mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL:            mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		CORSAllowAll:               corsAllowAll,
		CORSOrigins:                corsOrigins,
		CORSAllowCreds:             strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:5173"),
		EmailEnabled:               emailEnabled && smtpHost != "",
		SMTPHost:                   smtpHost,
		SMTPPort:                   mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:               getEnv("SMTP_USERNAME", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "Dealflow"),
		EmailFromAddress:           getEnv("EMAIL_FROM_ADDRESS", ""),
		DigestRecipients:           splitCSV(getEnv("DIGEST_RECIPIENTS", "")),
		TwilioAccountSID:           getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:            getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:           getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioStatusCallbackURL:    getEnv("TWILIO_STATUS_CALLBACK_URL", ""),
		SMSSendsPerMinute:          mustInt(getEnv("SMS_SENDS_PER_MINUTE", "20")),
		AttomBaseURL:               getEnv("ATTOM_BASE_URL", "https://api.gateway.attomdata.com/propertyapi/v1.0.0"),
		AttomAPIKey:                getEnv("ATTOM_API_KEY", ""),
		AttomRequestsPerSecond:     mustFloat(getEnv("ATTOM_REQUESTS_PER_SECOND", "2")),
		SkipTraceURL:               getEnv("SKIP_TRACE_URL", ""),
		SkipTraceAPIKey:            getEnv("SKIP_TRACE_API_KEY", ""),
		SkipTraceRequestsPerSecond: mustFloat(getEnv("SKIP_TRACE_REQUESTS_PER_SECOND", "1")),
		SkipTraceConcurrency:       mustInt(getEnv("SKIP_TRACE_CONCURRENCY", "4")),
		CountyPortalURL:            getEnv("COUNTY_PORTAL_URL", ""),
		ForeclosureFeedURL:         getEnv("FORECLOSURE_FEED_URL", ""),
		AutoLeadScoreThreshold:     mustInt(getEnv("AUTO_LEAD_SCORE_THRESHOLD", "60")),
		HotLeadThreshold:           mustInt(getEnv("HOT_LEAD_THRESHOLD", "80")),
		RepairCostTablePath:        getEnv("REPAIR_COST_TABLE_PATH", "config/repair_costs.yaml"),
		MinIOEndpoint:              getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:             getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:             getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketImportSnapshots: getEnv("MINIO_BUCKET_IMPORT_SNAPSHOTS", "import-snapshots"),
		MinioBucketExportArchives:  getEnv("MINIO_BUCKET_EXPORT_ARCHIVES", "export-archives"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SMSSendsPerMinute <= 0 {
		return nil, fmt.Errorf("SMS_SENDS_PER_MINUTE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
