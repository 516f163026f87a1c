// Command runner boots the scenario-runner service: the HTTP API, the
// broker-driven worker pool, and the orphan-run sweep, sharing one
// PostgreSQL connection pool and one Redis client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/api"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/broker"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/cleanup"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/config"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/database"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/httpexec"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/orchestrator"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/queue"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/repo"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/report"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("runner exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	configDir := os.Getenv("RUNNER_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	dbConfig, err := dsnToDatabaseConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("parsing database dsn: %w", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = dbClient.Close() }()
	db := dbClient.DB()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()

	runBroker := broker.New(redisClient, broker.Config{QueueKey: cfg.Redis.Queue}, logger)

	requests := repo.NewRequestRepo(db)
	datasets := repo.NewDatasetRepo(db)
	environments := repo.NewEnvironmentRepo(db)
	scenarios := repo.NewScenarioRepo(db)
	scenarioSteps := repo.NewScenarioStepRepo(db)
	scenarioRuns := repo.NewScenarioRunRepo(db)
	requestRuns := repo.NewRequestRunRepo(db)
	extractRules := repo.NewExtractRuleRepo(db)
	assertRules := repo.NewAssertRuleRepo(db)
	runVariables := repo.NewRunVariableRepo(db)

	engine := httpexec.New(cfg.HTTPClient.MaxResponseBytes, cfg.HTTPClient.MaxRedirects)

	orch := orchestrator.New(orchestrator.Repos{
		Environments: environments,
		Requests:     requests,
		Datasets:     datasets,
		Scenarios:    scenarios,
		Steps:        scenarioSteps,
		Runs:         scenarioRuns,
		RequestRuns:  requestRuns,
		ExtractRules: extractRules,
		AssertRules:  assertRules,
		RunVariables: runVariables,
	}, engine, logger)

	caseRunSvc := services.NewCaseRunService(requests, datasets, environments, extractRules, assertRules, requestRuns, runVariables, engine)
	scenarioRunSvc := services.NewScenarioRunService(scenarios, scenarioRuns, runBroker)
	reportBuilder := report.NewBuilder(scenarioRuns, scenarioSteps, requests, requestRuns)

	podID := os.Getenv("HOSTNAME")
	if podID == "" {
		podID = uuid.NewString()
	}

	dequeuer := queue.NewBrokerAdapter(func(ctx context.Context, timeout time.Duration) (int64, bool, error) {
		task, err := runBroker.Dequeue(ctx, timeout)
		if err != nil || task == nil {
			return 0, false, err
		}
		return task.ScenarioRunID, true, nil
	})

	pool := queue.NewPool(podID, queue.Config{
		WorkerCount:       cfg.Queue.WorkerCount,
		DequeueTimeout:    cfg.Queue.PollInterval,
		HeartbeatInterval: cfg.Queue.HeartbeatInterval,
	}, orch, scenarioRuns, dequeuer, logger)

	sweep := cleanup.NewService(cleanup.Config{
		Interval:        cfg.Queue.OrphanDetectionInterval,
		OrphanThreshold: cfg.Queue.OrphanThreshold,
	}, scenarioRuns, logger)

	server := api.NewServer(caseRunSvc, scenarioRunSvc, reportBuilder,
		func(ctx context.Context) error { return db.PingContext(ctx) },
		func(ctx context.Context) error { return runBroker.Ping(ctx) },
		logger,
	)

	pool.Start(ctx)
	sweep.Start(ctx)
	defer pool.Stop()
	defer sweep.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("scenario runner starting", "addr", addr, "pod_id", podID, "workers", cfg.Queue.WorkerCount)
	return server.Start(ctx, addr)
}

// dsnToDatabaseConfig adapts the YAML config layer's single connection
// string into the host-field shape database.NewClient expects.
func dsnToDatabaseConfig(cfg *config.DatabaseConfig) (database.Config, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return database.Config{}, fmt.Errorf("invalid database dsn: %w", err)
	}
	port, _ := strconv.Atoi(u.Port())
	if port == 0 {
		port = 5432
	}
	password, _ := u.User.Password()
	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}
	dbName := u.Path
	if len(dbName) > 0 && dbName[0] == '/' {
		dbName = dbName[1:]
	}
	return database.Config{
		Host:            u.Hostname(),
		Port:            port,
		User:            u.User.Username(),
		Password:        password,
		Database:        dbName,
		SSLMode:         sslMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, nil
}
