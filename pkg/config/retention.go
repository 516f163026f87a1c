package config

import "time"

// RetentionConfig holds data-retention settings. They are loaded and
// validated only: no component deletes old runs, and the orphan-run sweep
// takes its interval from QueueConfig.OrphanDetectionInterval.
type RetentionConfig struct {
	// RunRetentionDays is the number of days terminal ScenarioRuns are to
	// be kept; must be non-negative.
	RunRetentionDays int `yaml:"run_retention_days"`

	// CleanupInterval is the retention-cleanup interval; must be positive.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RunRetentionDays: 90,
		CleanupInterval:  1 * time.Hour,
	}
}
