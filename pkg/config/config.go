package config

// Config is the umbrella configuration object returned by Initialize() and
// threaded through the application: the HTTP server, the database pool, the
// broker client, and the worker pool all read their settings from one of
// these sections.
type Config struct {
	configDir string // Configuration directory path (for reference)

	Server     *ServerConfig
	Database   *DatabaseConfig
	Redis      *RedisConfig
	Queue      *QueueConfig
	HTTPClient *HTTPClientConfig
	Retention  *RetentionConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, useful for a
// one-line "configuration initialized" log entry.
type ConfigStats struct {
	WorkerCount       int
	MaxConcurrentRuns int
	QueueName         string
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		WorkerCount:       c.Queue.WorkerCount,
		MaxConcurrentRuns: c.Queue.MaxConcurrentRuns,
		QueueName:         c.Redis.Queue,
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}
