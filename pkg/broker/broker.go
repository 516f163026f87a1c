// Package broker implements the run-queue transport (C8 ingress): scenario
// run requests are serialized to JSON and pushed onto a Redis list, and
// the worker pool blocks on that same list to pick up work. LPUSH/BRPOP
// gives FIFO ordering with a blocking consumer wait, without requiring the
// worker to poll the database for newly queued runs.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Task is the message shape pushed onto the queue: enough to let a worker
// claim and execute the run without a second round trip before claiming.
// MessageID is a correlation id carried through worker log lines — it has
// no bearing on claim idempotency, which is enforced by the conditional
// queued→running update in pkg/repo, not by this id.
type Task struct {
	ScenarioRunID int64     `json:"scenario_run_id"`
	MessageID     string    `json:"message_id"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Config configures the Redis-backed broker.
type Config struct {
	QueueKey      string
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns the broker defaults.
func DefaultConfig() Config {
	return Config{
		QueueKey:      "exile:scenario_runs:queue",
		RetryAttempts: 3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// Broker is a Redis list used as a work queue for scenario runs.
type Broker struct {
	client *redis.Client
	config Config
	logger *slog.Logger
}

// New wraps an already-connected Redis client.
func New(client *redis.Client, config Config, logger *slog.Logger) *Broker {
	if config.QueueKey == "" {
		config.QueueKey = DefaultConfig().QueueKey
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = DefaultConfig().RetryAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{client: client, config: config, logger: logger}
}

// Enqueue pushes a scenario run onto the queue, retrying transient Redis
// failures up to RetryAttempts times.
func (b *Broker) Enqueue(ctx context.Context, scenarioRunID int64) error {
	task := Task{ScenarioRunID: scenarioRunID, MessageID: uuid.NewString(), EnqueuedAt: time.Now()}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("serializing scenario run task: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < b.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(b.config.RetryDelay)
		}
		if err := b.client.LPush(ctx, b.config.QueueKey, data).Err(); err != nil {
			lastErr = err
			b.logger.WarnContext(ctx, "enqueue attempt failed", "scenario_run_id", scenarioRunID, "attempt", attempt+1, "error", err)
			continue
		}
		b.logger.InfoContext(ctx, "scenario run enqueued", "scenario_run_id", scenarioRunID, "message_id", task.MessageID)
		return nil
	}
	return fmt.Errorf("enqueue scenario run %d after %d attempts: %w", scenarioRunID, b.config.RetryAttempts, lastErr)
}

// Dequeue blocks up to timeout waiting for a task, returning nil, nil if
// the timeout elapses with nothing queued.
func (b *Broker) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := b.client.BRPop(ctx, timeout, b.config.QueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("dequeue scenario run task: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BRPOP result shape")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("deserializing scenario run task: %w", err)
	}
	return &task, nil
}

// Ping checks the Redis connection, used by the health endpoint.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
