package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"     validate:"required"`
	Writeback WritebackConfig `mapstructure:"writeback" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig configures the shared cache backend. An empty URL selects the
// in-process memory backend.
type RedisConfig struct {
	URL    string `mapstructure:"url"    validate:"omitempty,url"`
	Prefix string `mapstructure:"prefix"`
}

// CacheConfig tunes the task query cache and the open-task counters.
type CacheConfig struct {
	// QueryTTL bounds how long an admissible task query result is served.
	QueryTTL time.Duration `mapstructure:"query_ttl"       validate:"required,gt=0"`
	// CounterTTL is the only expiry path for advisory counters.
	CounterTTL time.Duration `mapstructure:"counter_ttl"     validate:"required,gt=0"`
	// CounterTimeout caps each per-project store lookup during aggregation.
	CounterTimeout time.Duration `mapstructure:"counter_timeout" validate:"required,gt=0"`
	// CounterFanout limits concurrent per-project lookups for one request.
	CounterFanout int `mapstructure:"counter_fanout" validate:"required,gt=0"`
}

// WritebackConfig sizes the background cache write-back workers.
type WritebackConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}
