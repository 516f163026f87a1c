// Package cleanup runs the background orphan-run sweep: a scenario run
// stuck in running with no heartbeat past its threshold is marked failed,
// freeing it from ever blocking a future redelivery of the same message.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

type staleRunFinisher interface {
	ListStale(ctx context.Context, olderThanSeconds int) ([]int64, error)
	Finish(ctx context.Context, id int64, status string, isSuccess bool, runtimeVariables map[string]any, errMsg *string) error
}

// Config controls the orphan sweep's timing.
type Config struct {
	Interval        time.Duration
	OrphanThreshold time.Duration
}

// DefaultConfig returns the orphan sweep defaults.
func DefaultConfig() Config {
	return Config{Interval: time.Minute, OrphanThreshold: 5 * time.Minute}
}

// Service periodically marks orphaned scenario runs as failed.
type Service struct {
	config Config
	runs   staleRunFinisher
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(config Config, runs staleRunFinisher, logger *slog.Logger) *Service {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.OrphanThreshold <= 0 {
		config.OrphanThreshold = DefaultConfig().OrphanThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{config: config, runs: runs, logger: logger}
}

// Start launches the background sweep loop. All pods run this
// independently; marking an already-terminal run failed again is a no-op
// because the run no longer matches the running+stale query.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	s.logger.Info("cleanup service started", "interval", s.config.Interval, "orphan_threshold", s.config.OrphanThreshold)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	s.sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep finds runs stuck in running past the orphan threshold and
// finalizes them as failed, recording the stall in error_message.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ids, err := s.runs.ListStale(ctx, int(s.config.OrphanThreshold.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("listing stale scenario runs: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		msg := fmt.Sprintf("orphaned: no heartbeat for over %s", s.config.OrphanThreshold)
		if err := s.runs.Finish(ctx, id, models.RunStatusFailed, false, nil, &msg); err != nil {
			s.logger.Error("failed to mark orphaned scenario run failed", "scenario_run_id", id, "error", err)
			continue
		}
		s.logger.Warn("orphaned scenario run marked failed", "scenario_run_id", id)
		recovered++
	}
	return recovered, nil
}

func (s *Service) sweep(ctx context.Context) {
	recovered, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("orphan sweep failed", "error", err)
		return
	}
	if recovered > 0 {
		s.logger.Info("orphan sweep recovered runs", "count", recovered)
	}
}
