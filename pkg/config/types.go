package config

import "time"

// Shared leaf configuration types used by Config.

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"required,min=1"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig controls the Postgres connection.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"omitempty,min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"omitempty,min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path,omitempty"`
}

// RedisConfig controls the broker connection used by the run queue.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue" validate:"required"`
}

// HTTPClientConfig configures the request execution engine. MaxResponseBytes
// and MaxRedirects are passed to httpexec.New; DefaultTimeoutMS is validated
// only, and every request uses its template's own timeout_ms.
type HTTPClientConfig struct {
	DefaultTimeoutMS int `yaml:"default_timeout_ms" validate:"omitempty,min=1"`
	MaxResponseBytes int `yaml:"max_response_bytes" validate:"omitempty,min=1"`
	MaxRedirects     int `yaml:"max_redirects" validate:"omitempty,min=0"`
}
