package orchestrator

import (
	"context"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// The following interfaces describe only the repository methods the
// orchestrator calls; pkg/repo's concrete *Repo types satisfy them
// structurally. Declaring them here (rather than depending on pkg/repo's
// full surface) lets tests substitute in-memory fakes instead of a live
// database.

type environmentRepo interface {
	Get(ctx context.Context, id int64) (*models.Environment, error)
	Default(ctx context.Context) (*models.Environment, error)
}

type requestRepo interface {
	Get(ctx context.Context, id int64) (*models.RequestTemplate, error)
}

type datasetRepo interface {
	Get(ctx context.Context, id int64) (*models.Dataset, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*models.Dataset, error)
}

type scenarioRepo interface {
	Get(ctx context.Context, id int64) (*models.Scenario, error)
}

type scenarioStepRepo interface {
	ListByScenario(ctx context.Context, scenarioID int64) ([]*models.ScenarioStep, error)
}

type scenarioRunRepo interface {
	Get(ctx context.Context, id int64) (*models.ScenarioRun, error)
	CancelRequested(ctx context.Context, id int64) (bool, error)
	UpdateProgress(ctx context.Context, id int64, success bool) error
	Finish(ctx context.Context, id int64, status string, isSuccess bool, runtimeVariables map[string]any, errMsg *string) error
}

type requestRunRepo interface {
	Create(ctx context.Context, run *models.RequestRun) (int64, error)
}

type extractRuleRepo interface {
	ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.ExtractRule, error)
}

type assertRuleRepo interface {
	ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.AssertRule, error)
}

type runVariableRepo interface {
	CreateBatch(ctx context.Context, requestRunID, requestID int64, scenarioRunID, scenarioCaseID, datasetID *int64, records []models.ExtractRecord) error
}

// Repos bundles every repository the orchestrator reads from or writes to.
type Repos struct {
	Environments environmentRepo
	Requests     requestRepo
	Datasets     datasetRepo
	Scenarios    scenarioRepo
	Steps        scenarioStepRepo
	Runs         scenarioRunRepo
	RequestRuns  requestRunRepo
	ExtractRules extractRuleRepo
	AssertRules  assertRuleRepo
	RunVariables runVariableRepo
}
