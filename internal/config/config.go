package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:",prefix=SERVER_"`

	// Database configuration
	Database DatabaseConfig `env:",prefix=DB_"`

	// Kafka configuration for outbound notification events
	Kafka KafkaConfig `env:",prefix=KAFKA_"`

	// Referral code generation settings
	Referral ReferralConfig `env:",prefix=REFERRAL_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=postgres"`
	Password       string `env:"PASSWORD,default=postgres"`
	Name           string `env:"NAME,default=rewards"`
	SSLMode        string `env:"SSL_MODE,default=disable"`
	MaxConns       int    `env:"MAX_CONNS,default=25"`
	MinConns       int    `env:"MIN_CONNS,default=5"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=migrations"`
}

// KafkaConfig holds the notification event stream configuration. An empty
// broker list disables Kafka and falls back to log-only dispatch.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC,default=reward-events"`
}

// ReferralConfig holds code generation settings. Campaign defaults
// (threshold, reward, expiry) live in the referral_settings table and are
// managed through the admin endpoint.
type ReferralConfig struct {
	CodePrefix string `env:"CODE_PREFIX,default=RF-"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	Debug       bool   `env:"DEBUG,default=false"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// GetDatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
