// Package orchestrator implements the scenario orchestrator (C7): it walks
// a scenario's steps in order, resolving each step's datasets, executing
// requests, extracting and promoting variables, and evaluating assertions,
// stopping early on a failed step when the step's or the scenario's
// StopOnFail flag is set, or when cancellation has been requested. Scenario.RunMode is stored but never
// branched on — steps always execute sequentially, in scenario-step order.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dataset"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/extract"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/httpexec"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/masking"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/repo"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/services"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/verify"
)

// Orchestrator drives one scenario run end to end.
type Orchestrator struct {
	repos  Repos
	engine *httpexec.Engine
	logger *slog.Logger
}

func New(repos Repos, engine *httpexec.Engine, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{repos: repos, engine: engine, logger: logger}
}

// Run executes the scenario run identified by scenarioRunID, which must
// already be in the running state (the caller claims it first). Failures of
// the scenario are recorded on the run itself; Run returns an error only when
// the run cannot be loaded or its final state cannot be written.
func (o *Orchestrator) Run(ctx context.Context, scenarioRunID int64) error {
	log := o.logger.With("scenario_run_id", scenarioRunID)

	run, err := o.repos.Runs.Get(ctx, scenarioRunID)
	if err != nil {
		return fmt.Errorf("loading scenario run: %w", err)
	}
	scenario, err := o.repos.Scenarios.Get(ctx, run.ScenarioID)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("loading scenario: %w", err))
	}
	steps, err := o.repos.Steps.ListByScenario(ctx, scenario.ID)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("loading scenario steps: %w", err))
	}

	env, err := o.resolveEnvironment(ctx, run, scenario)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("resolving environment: %w", err))
	}

	runtimeVars := dynval.FromAny(run.RuntimeVariables).Map()
	if runtimeVars == nil {
		runtimeVars = map[string]dynval.Value{}
	}

	overallSuccess := true
	var failureMsg *string

	for _, step := range steps {
		canceled, err := o.repos.Runs.CancelRequested(ctx, scenarioRunID)
		if err != nil {
			log.Warn("checking cancel_requested failed", "error", err)
		}
		if canceled {
			reason := "scenario run canceled"
			return o.finish(ctx, run, models.RunStatusCanceled, false, runtimeVars, &reason)
		}

		stopOnFail := step.StopOnFail || scenario.StopOnFail
		stepSuccess, err := o.runStep(ctx, run, step, env, runtimeVars, stopOnFail)
		if err != nil {
			log.Error("step execution error", "step_no", step.StepNo, "error", err)
			stepSuccess = false
		}
		if !stepSuccess {
			overallSuccess = false
			if failureMsg == nil {
				msg := fmt.Sprintf("step %d (request %d) failed", step.StepNo, step.RequestID)
				failureMsg = &msg
			}
			if stopOnFail {
				break
			}
		}
	}

	status := models.RunStatusSuccess
	if !overallSuccess {
		status = models.RunStatusFailed
	}
	return o.finish(ctx, run, status, overallSuccess, runtimeVars, failureMsg)
}

// runStep resolves the step's dataset(s) and executes the request against
// each, returning whether every dataset execution in the step succeeded.
func (o *Orchestrator) runStep(ctx context.Context, run *models.ScenarioRun, step *models.ScenarioStep, env *models.Environment, runtimeVars map[string]dynval.Value, stopOnFail bool) (bool, error) {
	tmpl, err := o.repos.Requests.Get(ctx, step.RequestID)
	if err != nil {
		return false, fmt.Errorf("loading request template: %w", err)
	}

	datasets, err := o.resolveStepDatasets(ctx, tmpl, step)
	if err != nil {
		return false, err
	}

	success := true
	for _, ds := range datasets {
		ok, err := o.executeOne(ctx, run, step, tmpl, ds, env, runtimeVars)
		if err != nil {
			return false, err
		}
		if !ok {
			success = false
			if stopOnFail {
				break
			}
		}
	}
	return success, nil
}

func (o *Orchestrator) resolveStepDatasets(ctx context.Context, tmpl *models.RequestTemplate, step *models.ScenarioStep) ([]*models.Dataset, error) {
	if step.DatasetID != nil {
		ds, err := o.repos.Datasets.Get(ctx, *step.DatasetID)
		if err != nil {
			return nil, fmt.Errorf("loading pinned dataset: %w", err)
		}
		if err := dataset.Validate(tmpl, ds); err != nil {
			return nil, fmt.Errorf("%w: %w", services.ErrInvalidState, err)
		}
		return []*models.Dataset{ds}, nil
	}

	candidates, err := o.repos.Datasets.ListByRequest(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}

	// A step's own dataset_run_mode overrides the template's when set.
	effective := *tmpl
	if step.DatasetRunMode != "" {
		effective.DatasetRunMode = step.DatasetRunMode
	}
	if effective.DatasetRunMode == models.DatasetRunModeSingle {
		return nil, fmt.Errorf("%w: dataset_run_mode=single requires a dataset_id", services.ErrBadRequest)
	}
	return dataset.Resolve(&effective, candidates), nil
}

// executeOne runs a single (template, dataset) execution, persists it,
// extracts and promotes variables, and evaluates assertions. It returns
// whether the execution is considered successful (HTTP-level success and
// every assertion passed).
func (o *Orchestrator) executeOne(ctx context.Context, run *models.ScenarioRun, step *models.ScenarioStep, tmpl *models.RequestTemplate, ds *models.Dataset, env *models.Environment, runtimeVars map[string]dynval.Value) (bool, error) {
	result := o.engine.Execute(ctx, httpexec.Input{
		Template: tmpl, Dataset: ds, Environment: env, RuntimeVariables: runtimeVars,
	})

	var datasetID *int64
	if ds != nil {
		datasetID = &ds.ID
	}

	src := extract.Source{
		StatusCode: result.ResponseStatusCode,
		Headers:    result.ResponseHeaders,
		Body:       result.ResponseBody,
		Variables:  runtimeVars,
	}

	records, missingRequired := o.computeExtractions(ctx, tmpl.ID, datasetID, src, runtimeVars)

	errMsg := result.ErrorMessage
	success := result.IsSuccess
	if missingRequired != "" {
		msg := fmt.Sprintf("变量提取失败: required variable %q not found in response", missingRequired)
		errMsg = &msg
		success = false
	}

	// Assertions must be evaluated before the RequestRun is persisted: once
	// created there is no Update path, so a failing assertion has to be
	// folded into IsSuccess/ErrorMessage in the same write that creates it.
	var assertOutcomes []verify.Outcome
	if success {
		assertRules, err := o.repos.AssertRules.ListByRequest(ctx, tmpl.ID, datasetID)
		if err != nil {
			return false, fmt.Errorf("loading assert rules: %w", err)
		}
		assertOutcomes = verify.Evaluate(assertRules, src)
		for _, outcome := range assertOutcomes {
			if !outcome.Passed {
				success = false
				msg := outcome.Message
				errMsg = &msg
				break
			}
		}
	}

	requestRun := &models.RequestRun{
		RequestID:          tmpl.ID,
		ScenarioRunID:      &run.ID,
		ScenarioID:         &run.ScenarioID,
		ScenarioCaseID:     &step.ID,
		DatasetSnapshot:    result.DatasetSnapshot,
		RequestSnapshot:    result.RequestSnapshot,
		ResponseStatusCode: result.ResponseStatusCode,
		ResponseHeaders:    flattenHeaders(result.ResponseHeaders),
		ResponseBody:       result.ResponseBody,
		ResponseTimeMS:     result.ResponseTimeMS,
		IsSuccess:          success,
		ErrorMessage:       errMsg,
	}
	if ds != nil {
		requestRun.DatasetID = &ds.ID
	}

	requestRunID, err := o.repos.RequestRuns.Create(ctx, requestRun)
	if err != nil {
		return false, fmt.Errorf("persisting request run: %w", err)
	}
	if err := o.repos.Runs.UpdateProgress(ctx, run.ID, requestRun.IsSuccess); err != nil {
		o.logger.Warn("updating scenario run progress failed", "error", err)
	}

	if err := o.repos.RunVariables.CreateBatch(ctx, requestRunID, tmpl.ID, &run.ID, &step.ID, datasetID, records); err != nil {
		o.logger.Warn("persisting run variables failed", "error", err)
	}
	if len(records) > 0 {
		o.logger.Debug("variables extracted", "step_no", step.StepNo, "records", masking.NewService().RedactRecords(records))
	}

	if missingRequired != "" {
		o.logger.Warn("required extract rule found no value", "var_name", missingRequired)
		return false, nil
	}
	if !result.IsSuccess {
		return false, nil
	}
	for _, outcome := range assertOutcomes {
		if !outcome.Passed {
			o.logger.Warn("assertion failed", "step_no", step.StepNo, "message", outcome.Message)
			return false, nil
		}
	}
	return true, nil
}

// computeExtractions applies every extract rule for (requestID, datasetID)
// against src, promoting scenario/global-scoped values into runtimeVars.
// It returns the produced records plus the var_name of the first enabled
// rule marked required that found no value and has no default — an empty
// string means every required rule was satisfied.
func (o *Orchestrator) computeExtractions(ctx context.Context, requestID int64, datasetID *int64, src extract.Source, runtimeVars map[string]dynval.Value) ([]models.ExtractRecord, string) {
	rules, err := o.repos.ExtractRules.ListByRequest(ctx, requestID, datasetID)
	if err != nil {
		o.logger.Warn("loading extract rules failed", "error", err)
		return nil, ""
	}

	var missingRequired string
	records := make([]models.ExtractRecord, 0, len(rules))
	for _, rule := range rules {
		value, found, err := extract.Extract(rule, src)
		if err != nil {
			o.logger.Warn("extract rule failed", "var_name", rule.VarName, "error", err)
			continue
		}
		if !found {
			if rule.DefaultValue == nil {
				if rule.Required && missingRequired == "" {
					missingRequired = rule.VarName
				}
				continue
			}
			value = dynval.FromAny(rule.DefaultValue)
		}

		records = append(records, models.ExtractRecord{
			VarName: rule.VarName, VarValue: value.ToAny(), ValueType: value.TypeName(),
			SourceType: rule.SourceType, SourceExpr: rule.SourceExpr, Scope: rule.Scope, IsSecret: rule.IsSecret,
		})

		if rule.Scope == models.ScopeScenario || rule.Scope == models.ScopeGlobal {
			runtimeVars[rule.VarName] = value
		}
	}
	return records, missingRequired
}

func (o *Orchestrator) resolveEnvironment(ctx context.Context, run *models.ScenarioRun, scenario *models.Scenario) (*models.Environment, error) {
	envID := run.EnvID
	if envID == nil {
		envID = scenario.EnvID
	}
	if envID == nil {
		env, err := o.repos.Environments.Default(ctx)
		if err == repo.ErrNotFound {
			return nil, nil
		}
		return env, err
	}
	return o.repos.Environments.Get(ctx, *envID)
}

func (o *Orchestrator) fail(ctx context.Context, run *models.ScenarioRun, cause error) error {
	msg := cause.Error()
	return o.finish(ctx, run, models.RunStatusFailed, false, dynval.FromAny(run.RuntimeVariables).Map(), &msg)
}

func (o *Orchestrator) finish(ctx context.Context, run *models.ScenarioRun, status string, success bool, runtimeVars map[string]dynval.Value, errMsg *string) error {
	var vars map[string]any
	if runtimeVars != nil {
		vars = dynval.Map(runtimeVars).ToAny().(map[string]any)
	}
	if err := o.repos.Runs.Finish(ctx, run.ID, status, success, vars, errMsg); err != nil {
		return fmt.Errorf("finishing scenario run: %w", err)
	}
	return nil
}

// flattenHeaders converts the engine's map[string]any (which may hold a
// []any for a repeated Set-Cookie header) into the map[string]string shape
// persisted on a RequestRun.
func flattenHeaders(headers map[string]any) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		switch t := v.(type) {
		case string:
			out[k] = t
		case []any:
			joined := ""
			for i, item := range t {
				if i > 0 {
					joined += "; "
				}
				joined += fmt.Sprintf("%v", item)
			}
			out[k] = joined
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out
}
