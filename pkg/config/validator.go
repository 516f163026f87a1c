package config

import "fmt"

// Validator validates configuration comprehensively with clear error
// messages, following the teacher's fail-fast, ordered validation style.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at the
// first error encountered).
func (v *Validator) ValidateAll() error {
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateRedis(); err != nil {
		return fmt.Errorf("redis validation failed: %w", err)
	}
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateHTTPClient(); err != nil {
		return fmt.Errorf("http_client validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateServer() error {
	s := v.cfg.Server
	if s == nil {
		return fmt.Errorf("server configuration is nil")
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	switch s.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("mode must be one of debug, release, test, got %q", s.Mode)
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	d := v.cfg.Database
	if d == nil {
		return fmt.Errorf("database configuration is nil")
	}
	if d.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if d.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns must be non-negative, got %d", d.MaxOpenConns)
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("max_idle_conns must be non-negative, got %d", d.MaxIdleConns)
	}
	return nil
}

func (v *Validator) validateRedis() error {
	r := v.cfg.Redis
	if r == nil {
		return fmt.Errorf("redis configuration is nil")
	}
	if r.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if r.Queue == "" {
		return fmt.Errorf("queue is required")
	}
	if r.DB < 0 {
		return fmt.Errorf("db must be non-negative, got %d", r.DB)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max_concurrent_runs must be at least 1, got %d", q.MaxConcurrentRuns)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %v", q.RunTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", q.OrphanThreshold)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", q.HeartbeatInterval)
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return fmt.Errorf("heartbeat_interval must be less than orphan_threshold to prevent false orphan detection, got heartbeat=%v threshold=%v", q.HeartbeatInterval, q.OrphanThreshold)
	}

	return nil
}

func (v *Validator) validateHTTPClient() error {
	h := v.cfg.HTTPClient
	if h == nil {
		return fmt.Errorf("http_client configuration is nil")
	}
	if h.DefaultTimeoutMS < 1 {
		return fmt.Errorf("default_timeout_ms must be at least 1, got %d", h.DefaultTimeoutMS)
	}
	if h.MaxResponseBytes < 1 {
		return fmt.Errorf("max_response_bytes must be at least 1, got %d", h.MaxResponseBytes)
	}
	if h.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be non-negative, got %d", h.MaxRedirects)
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	if r.RunRetentionDays < 0 {
		return fmt.Errorf("run_retention_days must be non-negative, got %d", r.RunRetentionDays)
	}
	if r.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive, got %v", r.CleanupInterval)
	}
	return nil
}
