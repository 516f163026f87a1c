package services

import (
	"context"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

type scenarioRepo interface {
	Get(ctx context.Context, id int64) (*models.Scenario, error)
}

type scenarioRunRepo interface {
	Create(ctx context.Context, scenarioID int64, envID *int64, triggerType string, runtimeVariables map[string]any) (int64, error)
	Get(ctx context.Context, id int64) (*models.ScenarioRun, error)
	RequestCancel(ctx context.Context, id int64) error
}

type runBroker interface {
	Enqueue(ctx context.Context, scenarioRunID int64) error
}

// ScenarioRunService implements the scenario-run lifecycle operations
// exposed over HTTP: enqueue a run, read it back, and request cancellation.
type ScenarioRunService struct {
	scenarios scenarioRepo
	runs      scenarioRunRepo
	broker    runBroker
}

func NewScenarioRunService(scenarios scenarioRepo, runs scenarioRunRepo, broker runBroker) *ScenarioRunService {
	return &ScenarioRunService{scenarios: scenarios, runs: runs, broker: broker}
}

// Enqueue validates the scenario exists, creates the run in the queued
// state and pushes it onto the broker.
func (s *ScenarioRunService) Enqueue(ctx context.Context, req models.ScenarioRunRequest) (*models.ScenarioRunAcceptedResponse, error) {
	if req.ScenarioID == 0 {
		return nil, NewValidationError("scenario_id", "scenario_id is required")
	}
	if _, err := s.scenarios.Get(ctx, req.ScenarioID); err != nil {
		return nil, err
	}

	triggerType := req.TriggerType
	if triggerType == "" {
		triggerType = models.TriggerTypeManual
	}

	runID, err := s.runs.Create(ctx, req.ScenarioID, req.EnvID, triggerType, req.InitialVariables)
	if err != nil {
		return nil, fmt.Errorf("creating scenario run: %w", err)
	}

	if err := s.broker.Enqueue(ctx, runID); err != nil {
		return nil, fmt.Errorf("enqueueing scenario run: %w", err)
	}

	return &models.ScenarioRunAcceptedResponse{ScenarioRunID: runID, RunStatus: models.RunStatusQueued}, nil
}

// Get loads one scenario run by id.
func (s *ScenarioRunService) Get(ctx context.Context, id int64) (*models.ScenarioRun, error) {
	return s.runs.Get(ctx, id)
}

// Cancel requests cooperative cancellation of a non-terminal run.
func (s *ScenarioRunService) Cancel(ctx context.Context, scenarioRunID int64) error {
	run, err := s.runs.Get(ctx, scenarioRunID)
	if err != nil {
		return err
	}
	if models.TerminalRunStatuses[run.RunStatus] {
		return ErrInvalidState
	}
	return s.runs.RequestCancel(ctx, scenarioRunID)
}
