// Package e2e drives the scenario orchestrator against an in-process HTTP
// server, exercising the seed scenarios end to end without a database.
package e2e

import (
	"context"
	"sync"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/httpexec"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/orchestrator"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/repo"
)

// Store is an in-memory stand-in for every repository the orchestrator
// reads and writes, keyed the same way the Postgres-backed repositories
// are, so the same orchestrator code runs against it unmodified.
type Store struct {
	mu sync.Mutex

	environments map[int64]*models.Environment
	requests     map[int64]*models.RequestTemplate
	datasets     map[int64][]*models.Dataset
	scenarios    map[int64]*models.Scenario
	steps        map[int64][]*models.ScenarioStep
	runs         map[int64]*models.ScenarioRun
	requestRuns  []*models.RequestRun
	extractRules map[int64][]*models.ExtractRule
	assertRules  map[int64][]*models.AssertRule
	runVariables []models.ExtractRecord

	nextID int64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		environments: map[int64]*models.Environment{},
		requests:     map[int64]*models.RequestTemplate{},
		datasets:     map[int64][]*models.Dataset{},
		scenarios:    map[int64]*models.Scenario{},
		steps:        map[int64][]*models.ScenarioStep{},
		runs:         map[int64]*models.ScenarioRun{},
		extractRules: map[int64][]*models.ExtractRule{},
		assertRules:  map[int64][]*models.AssertRule{},
	}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// PutRequest registers a request template, assigning it an id if unset.
func (s *Store) PutRequest(tmpl *models.RequestTemplate) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tmpl.ID == 0 {
		tmpl.ID = s.allocID()
	}
	s.requests[tmpl.ID] = tmpl
	return tmpl.ID
}

// PutScenario registers a scenario with its ordered steps.
func (s *Store) PutScenario(scenario *models.Scenario, steps []*models.ScenarioStep) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scenario.ID == 0 {
		scenario.ID = s.allocID()
	}
	s.scenarios[scenario.ID] = scenario
	for _, step := range steps {
		if step.ID == 0 {
			step.ID = s.allocID()
		}
		step.ScenarioID = scenario.ID
	}
	s.steps[scenario.ID] = steps
	return scenario.ID
}

// PutDataset registers a dataset under a request template.
func (s *Store) PutDataset(ds *models.Dataset) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds.ID == 0 {
		ds.ID = s.allocID()
	}
	s.datasets[ds.RequestID] = append(s.datasets[ds.RequestID], ds)
	return ds.ID
}

// PutExtractRule registers an extract rule under a request template.
func (s *Store) PutExtractRule(r *models.ExtractRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.allocID()
	}
	r.IsEnabled = true
	s.extractRules[r.RequestID] = append(s.extractRules[r.RequestID], r)
}

// PutAssertRule registers an assert rule under a request template.
func (s *Store) PutAssertRule(r *models.AssertRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.allocID()
	}
	r.IsEnabled = true
	s.assertRules[r.RequestID] = append(s.assertRules[r.RequestID], r)
}

// NewRun creates a queued ScenarioRun ready to hand to an Orchestrator.
func (s *Store) NewRun(scenarioID int64) *models.ScenarioRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &models.ScenarioRun{
		ScenarioID:  scenarioID,
		TriggerType: models.TriggerTypeManual,
		RunStatus:   models.RunStatusRunning,
	}
	run.ID = s.allocID()
	s.runs[run.ID] = run
	return run
}

// RequestRuns returns every persisted RequestRun, in creation order.
func (s *Store) RequestRuns() []*models.RequestRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.RequestRun, len(s.requestRuns))
	copy(out, s.requestRuns)
	return out
}

// --- orchestrator.Repos implementation ---

func (s *Store) Get(ctx context.Context, id int64) (*models.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if env, ok := s.environments[id]; ok {
		return env, nil
	}
	return nil, repo.ErrNotFound
}

func (s *Store) Default(ctx context.Context) (*models.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range s.environments {
		if env.IsDefault {
			return env, nil
		}
	}
	return nil, repo.ErrNotFound
}

type environmentRepo Store

func (s *Store) Environments() *environmentRepo { return (*environmentRepo)(s) }

func (e *environmentRepo) Get(ctx context.Context, id int64) (*models.Environment, error) {
	return (*Store)(e).Get(ctx, id)
}
func (e *environmentRepo) Default(ctx context.Context) (*models.Environment, error) {
	return (*Store)(e).Default(ctx)
}

type requestRepo Store

func (s *Store) Requests() *requestRepo { return (*requestRepo)(s) }

func (r *requestRepo) Get(ctx context.Context, id int64) (*models.RequestTemplate, error) {
	st := (*Store)(r)
	st.mu.Lock()
	defer st.mu.Unlock()
	if tmpl, ok := st.requests[id]; ok {
		return tmpl, nil
	}
	return nil, repo.ErrNotFound
}

type datasetRepo Store

func (s *Store) Datasets() *datasetRepo { return (*datasetRepo)(s) }

func (d *datasetRepo) Get(ctx context.Context, id int64) (*models.Dataset, error) {
	st := (*Store)(d)
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, list := range st.datasets {
		for _, ds := range list {
			if ds.ID == id {
				return ds, nil
			}
		}
	}
	return nil, repo.ErrNotFound
}

func (d *datasetRepo) ListByRequest(ctx context.Context, requestID int64) ([]*models.Dataset, error) {
	st := (*Store)(d)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.datasets[requestID], nil
}

type scenarioRepo Store

func (s *Store) Scenarios() *scenarioRepo { return (*scenarioRepo)(s) }

func (s *scenarioRepo) Get(ctx context.Context, id int64) (*models.Scenario, error) {
	st := (*Store)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if sc, ok := st.scenarios[id]; ok {
		return sc, nil
	}
	return nil, repo.ErrNotFound
}

type scenarioStepRepo Store

func (s *Store) Steps() *scenarioStepRepo { return (*scenarioStepRepo)(s) }

func (s *scenarioStepRepo) ListByScenario(ctx context.Context, scenarioID int64) ([]*models.ScenarioStep, error) {
	st := (*Store)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.steps[scenarioID], nil
}

type scenarioRunRepo Store

func (s *Store) Runs() *scenarioRunRepo { return (*scenarioRunRepo)(s) }

func (s *scenarioRunRepo) Get(ctx context.Context, id int64) (*models.ScenarioRun, error) {
	st := (*Store)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if run, ok := st.runs[id]; ok {
		return run, nil
	}
	return nil, repo.ErrNotFound
}

func (s *scenarioRunRepo) CancelRequested(ctx context.Context, id int64) (bool, error) {
	st := (*Store)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	run, ok := st.runs[id]
	if !ok {
		return false, repo.ErrNotFound
	}
	return run.CancelRequested, nil
}

func (s *scenarioRunRepo) UpdateProgress(ctx context.Context, id int64, success bool) error {
	st := (*Store)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	run, ok := st.runs[id]
	if !ok {
		return repo.ErrNotFound
	}
	run.TotalRequestRuns++
	if success {
		run.SuccessRequestRuns++
	} else {
		run.FailedRequestRuns++
	}
	return nil
}

func (s *scenarioRunRepo) Finish(ctx context.Context, id int64, status string, isSuccess bool, runtimeVariables map[string]any, errMsg *string) error {
	st := (*Store)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	run, ok := st.runs[id]
	if !ok {
		return repo.ErrNotFound
	}
	run.RunStatus = status
	run.IsSuccess = isSuccess
	run.RuntimeVariables = runtimeVariables
	run.ErrorMessage = errMsg
	return nil
}

type requestRunRepo Store

func (s *Store) RequestRunRepo() *requestRunRepo { return (*requestRunRepo)(s) }

func (r *requestRunRepo) Create(ctx context.Context, run *models.RequestRun) (int64, error) {
	st := (*Store)(r)
	st.mu.Lock()
	defer st.mu.Unlock()
	run.ID = st.allocID()
	st.requestRuns = append(st.requestRuns, run)
	return run.ID, nil
}

type extractRuleRepo Store

func (s *Store) ExtractRules() *extractRuleRepo { return (*extractRuleRepo)(s) }

func (e *extractRuleRepo) ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.ExtractRule, error) {
	st := (*Store)(e)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.extractRules[requestID], nil
}

type assertRuleRepo Store

func (s *Store) AssertRules() *assertRuleRepo { return (*assertRuleRepo)(s) }

func (a *assertRuleRepo) ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.AssertRule, error) {
	st := (*Store)(a)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.assertRules[requestID], nil
}

type runVariableRepo Store

func (s *Store) RunVariables() *runVariableRepo { return (*runVariableRepo)(s) }

func (v *runVariableRepo) CreateBatch(ctx context.Context, requestRunID, requestID int64, scenarioRunID, scenarioCaseID, datasetID *int64, records []models.ExtractRecord) error {
	st := (*Store)(v)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.runVariables = append(st.runVariables, records...)
	return nil
}

// Repos assembles an orchestrator.Repos backed entirely by this Store.
func (s *Store) Repos() orchestrator.Repos {
	return orchestrator.Repos{
		Environments: s.Environments(),
		Requests:     s.Requests(),
		Datasets:     s.Datasets(),
		Scenarios:    s.Scenarios(),
		Steps:        s.Steps(),
		Runs:         s.Runs(),
		RequestRuns:  s.RequestRunRepo(),
		ExtractRules: s.ExtractRules(),
		AssertRules:  s.AssertRules(),
		RunVariables: s.RunVariables(),
	}
}

// NewOrchestrator wires an orchestrator.Orchestrator against this Store.
func (s *Store) NewOrchestrator() *orchestrator.Orchestrator {
	engine := httpexec.New(1<<20, 5)
	return orchestrator.New(s.Repos(), engine, nil)
}
