package config

import "time"

// QueueConfig contains queue and worker pool configuration.
// These values control how scenario runs are dequeued, claimed, and
// processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently dequeues and processes runs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentRuns is validated and reported in the configuration
	// stats; the worker pool does not enforce it, so the number of runs in
	// flight is bounded only by WorkerCount per replica.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`

	// PollInterval is the base interval for BRPOP-style dequeue retries
	// when the queue is empty.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter must be non-negative and less than PollInterval.
	// It is validated only; no jitter is applied to the dequeue wait.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// RunTimeout must be positive. It is validated only: no deadline is
	// applied to a scenario run, and the orchestrator loop has no overall
	// run timeout (see SPEC_FULL §5).
	RunTimeout time.Duration `yaml:"run_timeout"`

	// GracefulShutdownTimeout must be positive. It is validated only; the
	// worker pool's Stop does not read it.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned runs (rows
	// stuck in running with no owning worker still alive).
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long a run can sit in running without a
	// heartbeat before it is considered orphaned.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`

	// HeartbeatInterval is how often a worker refreshes the heartbeat
	// timestamp on the run it currently owns.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentRuns:       5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		RunTimeout:              15 * time.Minute,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		HeartbeatInterval:       30 * time.Second,
	}
}
