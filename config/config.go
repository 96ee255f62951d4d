package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"wingman/database"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// HTTP configuration
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Identity provider token verification. When empty, the X-User-ID header is trusted.
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
	AuthJWTIssuer string `env:"AUTH_JWT_ISSUER"`

	// Market configuration
	ResolverIDStrings []string      `env:"RESOLVER_IDS" envSeparator:","`
	ResolverIDs       []uuid.UUID   `env:"-"`
	TokenDecimals     int32         `env:"TOKEN_DECIMALS" envDefault:"6"`
	MarketDuration    time.Duration `env:"MARKET_DURATION" envDefault:"168h"`
	ExpirySchedule    string        `env:"MARKET_EXPIRY_SCHEDULE" envDefault:"0 * * * * *"`

	// Vouch ledger constants
	VouchBaseBudget      float64 `env:"VOUCH_BASE_BUDGET" envDefault:"20"`
	VouchPointsPerFriend float64 `env:"VOUCH_POINTS_PER_FRIEND" envDefault:"3"`
	VouchRewardPerPoint  float64 `env:"VOUCH_REWARD_PER_POINT" envDefault:"1.0"`
	VouchPenaltyPerPoint float64 `env:"VOUCH_PENALTY_PER_POINT" envDefault:"2.0"`

	// Redis configuration (settlement locks and rate limiting)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// NATS configuration
	NATSServers string `env:"NATS_SERVERS"`

	// Escrow contract configuration
	ChainRPCURL        string `env:"CHAIN_RPC_URL"`
	ChainEscrowAddress string `env:"CHAIN_ESCROW_ADDRESS"`
	ChainPrivateKey    string `env:"CHAIN_PRIVATE_KEY"`

	// Settlement archive configuration
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// Discord webhook for resolution announcements
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	// OpenTelemetry configuration
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"wingman"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"none"` // "console", "otlp" or "none"
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"10000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsResolver reports whether the user is a globally configured market resolver
func (c *Config) IsResolver(userID uuid.UUID) bool {
	for _, id := range c.ResolverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ConfigureLogging applies the log level and format to the global logrus logger
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// load loads configuration from a .env file (if present) and environment variables
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	for _, idStr := range config.ResolverIDStrings {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid resolver ID %q: %w", idStr, err)
		}
		config.ResolverIDs = append(config.ResolverIDs, id)
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.Environment == "production" && config.AuthJWTSecret == "" {
			return nil, fmt.Errorf("AUTH_JWT_SECRET is required in production")
		}
	}

	if config.TokenDecimals < 0 || config.TokenDecimals > 18 {
		return nil, fmt.Errorf("TOKEN_DECIMALS must be between 0 and 18")
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		HTTPAddr:             ":0",
		RateLimitPerMinute:   120,
		ResolverIDs:          []uuid.UUID{uuid.MustParse("00000000-0000-0000-0000-00000000a001")},
		TokenDecimals:        6,
		MarketDuration:       7 * 24 * time.Hour,
		ExpirySchedule:       "0 * * * * *",
		VouchBaseBudget:      20,
		VouchPointsPerFriend: 3,
		VouchRewardPerPoint:  1.0,
		VouchPenaltyPerPoint: 2.0,
		OTelServiceName:      "wingman",
		OTelExporterType:     "none",
		LogLevel:             "info",
	}
}
