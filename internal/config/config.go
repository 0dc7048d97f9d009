package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	InternalPort   string        `mapstructure:"internal_port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	URL               string        `mapstructure:"url"`
	MaxConnections    int           `mapstructure:"max_connections"`
	MinConnections    int           `mapstructure:"min_connections"`
	ApplicationName   string        `mapstructure:"application_name"`
	MaxIdleTime       time.Duration `mapstructure:"max_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	PingTimeout       time.Duration `mapstructure:"ping_timeout"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	AuthURL        string        `mapstructure:"auth_url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	PublicKeyURL    string        `mapstructure:"public_key_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// GeneratorConfig describes the remote creature generation API
type GeneratorConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	APIToken      string        `mapstructure:"api_token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	DefaultPrompt string        `mapstructure:"default_prompt"`
}

// EconomyConfig holds the token economy constants
type EconomyConfig struct {
	InitialTokens      int `mapstructure:"initial_tokens"`
	GenerateCost       int `mapstructure:"generate_cost"`
	MaxBatchSize       int `mapstructure:"max_batch_size"`
	DefaultResellValue int `mapstructure:"default_resell_value"`
}

// CacheConfig controls the trainer record cache
type CacheConfig struct {
	TrainerTTL time.Duration `mapstructure:"trainer_ttl"`
}

// SessionsConfig controls in-memory trainer sessions
type SessionsConfig struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TimeoutsConfig contains various timeout configurations
type TimeoutsConfig struct {
	HTTPMiddleware     time.Duration `mapstructure:"http_middleware"`
	JWTValidatorClient time.Duration `mapstructure:"jwt_validator_client"`
	GracefulShutdown   time.Duration `mapstructure:"graceful_shutdown"`
	SchemaSetup        time.Duration `mapstructure:"schema_setup"`
	Persistence        time.Duration `mapstructure:"persistence"`
}

// MetricsConfig contains metrics collection configuration
type MetricsConfig struct {
	UpdateInterval time.Duration `mapstructure:"update_interval"`
}

// requiredFields maps config keys that have no default to their env variables
var requiredFields = map[string]string{
	"database.url":         "HATCHERY_SVC_DATABASE_URL",
	"redis.url":            "HATCHERY_SVC_REDIS_URL",
	"redis.auth_url":       "HATCHERY_SVC_REDIS_AUTH_URL",
	"server.port":          "HATCHERY_SVC_SERVER_PORT",
	"server.internal_port": "HATCHERY_SVC_SERVER_INTERNAL_PORT",
	"auth.public_key_url":  "HATCHERY_SVC_AUTH_PUBLIC_KEY_URL",
	"generator.endpoint":   "HATCHERY_SVC_GENERATOR_ENDPOINT",
	"generator.api_token":  "HATCHERY_SVC_GENERATOR_API_TOKEN",
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/hatchery-service")

	v.SetEnvPrefix("HATCHERY_SVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range requiredFields {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, defaults + env vars are enough
	}

	for key := range requiredFields {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("config validation failed: required configuration field '%s' is not set (use environment variable %s)", key, requiredFields[key])
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.application_name", "hatchery-service")
	v.SetDefault("database.max_idle_time", "5m")
	v.SetDefault("database.health_check_period", "1m")
	v.SetDefault("database.ping_timeout", "5s")

	v.SetDefault("redis.max_connections", 10)
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.ping_timeout", "5s")
	v.SetDefault("redis.key_prefix", "hatchery:")

	v.SetDefault("auth.refresh_interval", "24h")

	v.SetDefault("logging.level", "info")

	// Image generation is slow; the transport timeout is the only bound on a call.
	v.SetDefault("generator.timeout", "90s")
	v.SetDefault("generator.default_prompt", "")

	v.SetDefault("economy.initial_tokens", 100)
	v.SetDefault("economy.generate_cost", 10)
	v.SetDefault("economy.max_batch_size", 5)
	v.SetDefault("economy.default_resell_value", 5)

	v.SetDefault("cache.trainer_ttl", "10m")

	v.SetDefault("sessions.idle_timeout", "30m")
	v.SetDefault("sessions.cleanup_interval", "5m")

	v.SetDefault("timeouts.http_middleware", "110s")
	v.SetDefault("timeouts.jwt_validator_client", "10s")
	v.SetDefault("timeouts.graceful_shutdown", "30s")
	v.SetDefault("timeouts.schema_setup", "10s")
	// Saves run detached from the request, so they need their own bound.
	v.SetDefault("timeouts.persistence", "10s")

	v.SetDefault("metrics.update_interval", "10s")
}

// Validate checks value ranges that defaults and env overrides may break
func (c *Config) Validate() error {
	required := map[string]string{
		"database.url":         c.Database.URL,
		"redis.url":            c.Redis.URL,
		"redis.auth_url":       c.Redis.AuthURL,
		"server.port":          c.Server.Port,
		"server.internal_port": c.Server.InternalPort,
		"auth.public_key_url":  c.Auth.PublicKeyURL,
		"generator.endpoint":   c.Generator.Endpoint,
		"generator.api_token":  c.Generator.APIToken,
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("required configuration field '%s' cannot be empty (set environment variable %s)", field, requiredFields[field])
		}
	}

	if !strings.HasPrefix(c.Generator.Endpoint, "http://") && !strings.HasPrefix(c.Generator.Endpoint, "https://") {
		return fmt.Errorf("generator.endpoint must be an http(s) URL, got %q", c.Generator.Endpoint)
	}

	timeouts := map[string]time.Duration{
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"database.ping_timeout":     c.Database.PingTimeout,
		"redis.ping_timeout":        c.Redis.PingTimeout,
		"generator.timeout":         c.Generator.Timeout,
		"sessions.cleanup_interval": c.Sessions.CleanupInterval,
		"metrics.update_interval":   c.Metrics.UpdateInterval,
		"timeouts.persistence":      c.Timeouts.Persistence,
	}

	for name, timeout := range timeouts {
		if timeout <= 0 {
			return fmt.Errorf("timeout '%s' must be positive, got %v", name, timeout)
		}
		if timeout > 10*time.Minute {
			return fmt.Errorf("timeout '%s' seems too large, got %v", name, timeout)
		}
	}

	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database.max_connections must be positive, got %d", c.Database.MaxConnections)
	}
	if c.Database.MinConnections < 0 || c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database.min_connections must be between 0 and max_connections, got %d", c.Database.MinConnections)
	}
	if c.Redis.MaxConnections <= 0 {
		return fmt.Errorf("redis.max_connections must be positive, got %d", c.Redis.MaxConnections)
	}
	if c.Redis.MaxRetries < 0 {
		return fmt.Errorf("redis.max_retries cannot be negative, got %d", c.Redis.MaxRetries)
	}

	if c.Economy.InitialTokens < 0 {
		return fmt.Errorf("economy.initial_tokens cannot be negative, got %d", c.Economy.InitialTokens)
	}
	if c.Economy.GenerateCost <= 0 {
		return fmt.Errorf("economy.generate_cost must be positive, got %d", c.Economy.GenerateCost)
	}
	if c.Economy.MaxBatchSize < 1 || c.Economy.MaxBatchSize > 20 {
		return fmt.Errorf("economy.max_batch_size must be between 1 and 20, got %d", c.Economy.MaxBatchSize)
	}
	if c.Economy.DefaultResellValue < 0 {
		return fmt.Errorf("economy.default_resell_value cannot be negative, got %d", c.Economy.DefaultResellValue)
	}

	if c.Sessions.IdleTimeout <= 0 {
		return fmt.Errorf("sessions.idle_timeout must be positive, got %v", c.Sessions.IdleTimeout)
	}

	return nil
}

// String returns a loggable summary without secrets
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Host: %s, Port: %s, InternalPort: %s, LogLevel: %s, Generator: %s, GenerateCost: %d, InitialTokens: %d, MaxBatch: %d, DB: %s}",
		c.Server.Host, c.Server.Port, c.Server.InternalPort, c.Logging.Level,
		c.Generator.Endpoint, c.Economy.GenerateCost, c.Economy.InitialTokens, c.Economy.MaxBatchSize,
		maskURL(c.Database.URL),
	)
}

// maskURL hides credentials in connection URLs
func maskURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at == -1 || scheme == -1 || scheme > at {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
