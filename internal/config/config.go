package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nexo-studio/agency-api/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Auth      AuthConfig
	ApiKey    ApiKeyConfig
	Quotation QuotationConfig
	Notify    NotifyConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// Version is reported by the health endpoints
	Version string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	LogQueries      bool
}

// RedisConfig configures the redis instance used for preview tokens and the task queue.
// An empty Addr disables redis; previews then live in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// QueueConfig configures the asynq background worker
type QueueConfig struct {
	// Enabled makes the API enqueue notifications instead of sending them inline
	Enabled     bool
	Concurrency int
}

// AuthConfig holds access token validation settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type ApiKeyConfig struct {
	Value string // Loaded from secrets or environment
}

// QuotationConfig holds quotation lifecycle settings
type QuotationConfig struct {
	// ValidityDays is added to the creation date of internal quotations
	ValidityDays int
	// PreviewTTL is how long a public preview token stays valid (seconds)
	PreviewTTL int
	// ReminderSchedule is the cron expression of the pending quotation reminder
	ReminderSchedule string
	// ReminderAfterHours is how old a pending quotation must be before staff is reminded
	ReminderAfterHours int
	ReminderBatchSize  int
	// NumberPrefix is prepended to generated quotation numbers
	NumberPrefix string
}

// NotifyConfig configures staff notifications
type NotifyConfig struct {
	// Mode is "twilio" or "log"
	Mode             string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	StaffPhones      []string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions is DENY, SAMEORIGIN, or empty to disable
	FrameOptions       string
	ContentTypeNosniff bool
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute applies per IP to the public endpoints
	RequestsPerMinute int
	// RequestsPerMinuteAuth applies per user to the authenticated endpoints
	RequestsPerMinuteAuth int
	// QuotationSubmitsPerHour caps public quotation submissions per IP
	QuotationSubmitsPerHour int
	WhitelistIPs            []string
	WhitelistPaths          []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// PreviewTTLDuration returns the preview token lifetime
func (q *QuotationConfig) PreviewTTLDuration() time.Duration {
	return time.Duration(q.PreviewTTL) * time.Second
}

// ReminderAfter returns the pending age that triggers a reminder
func (q *QuotationConfig) ReminderAfter() time.Duration {
	return time.Duration(q.ReminderAfterHours) * time.Hour
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = v.GetString("REDIS_URL")
	}
	if cfg.Notify.TwilioAccountSID == "" {
		cfg.Notify.TwilioAccountSID = v.GetString("TWILIO_ACCOUNT_SID")
	}
	if cfg.Notify.TwilioAuthToken == "" {
		cfg.Notify.TwilioAuthToken = v.GetString("TWILIO_AUTH_TOKEN")
	}

	return &cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && c.App.Environment != "development" {
		return fmt.Errorf("auth.jwtSecret is required outside development")
	}
	if c.Quotation.ValidityDays < 1 {
		return fmt.Errorf("quotation.validityDays must be positive")
	}
	if c.Queue.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("queue.enabled requires redis.addr")
	}
	if c.Notify.Mode == "twilio" && (c.Notify.TwilioAccountSID == "" || c.Notify.TwilioFromNumber == "") {
		return fmt.Errorf("notify.mode=twilio requires account SID and from number")
	}
	return nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source
//
// Key Vault is used when BOTH conditions are met:
// 1. USE_AZURE_KEY_VAULT environment variable is set to "true"
// 2. Environment is "staging" or "production"
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if !provider.IsVaultEnabled() {
		return nil, fmt.Errorf("vault provider not enabled despite USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Loading secrets from Azure Key Vault")
	resolveSecrets(ctx, cfg, provider)
	logger.Info("Secrets loaded from vault successfully")

	return cfg, nil
}

// secretBinding maps a vault secret to its env fallback and config field
type secretBinding struct {
	vaultName string
	envName   string
	target    *string
}

func resolveSecrets(ctx context.Context, cfg *Config, provider *secrets.Provider) {
	bindings := []secretBinding{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"jwt-secret", "JWT_SECRET", &cfg.Auth.JWTSecret},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.ApiKey.Value},
		{"redis-password", "REDIS_PASSWORD", &cfg.Redis.Password},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"twilio-auth-token", "TWILIO_AUTH_TOKEN", &cfg.Notify.TwilioAuthToken},
	}

	for _, b := range bindings {
		if value, err := provider.GetSecretOrEnv(ctx, b.vaultName, b.envName); err == nil && value != "" {
			*b.target = value
		}
	}

	// Database name and SSL mode vary per environment and stay in env vars
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Nexo Agency API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.version", "dev")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "agency")
	v.SetDefault("database.user", "agency_user")
	v.SetDefault("database.password", "agency_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.logQueries", false)

	// Redis and queue defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.concurrency", 5)

	// Auth defaults
	v.SetDefault("auth.issuer", "nexo-agency")
	v.SetDefault("auth.audience", "agency-api")

	// Quotation defaults
	v.SetDefault("quotation.validityDays", 30)
	v.SetDefault("quotation.previewTTL", 1800) // 30 minutes
	v.SetDefault("quotation.reminderSchedule", "0 * * * *") // hourly
	v.SetDefault("quotation.reminderAfterHours", 24)
	v.SetDefault("quotation.reminderBatchSize", 50)
	v.SetDefault("quotation.numberPrefix", "COT")

	// Notification defaults
	v.SetDefault("notify.mode", "log")
	v.SetDefault("notify.staffPhones", []string{})

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300) // 5 minutes

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "agency-files")
	v.SetDefault("storage.maxUploadSizeMB", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID", "Content-Language"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false) // enable in production with HTTPS
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 300)
	v.SetDefault("rateLimit.quotationSubmitsPerHour", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
