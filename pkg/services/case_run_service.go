package services

import (
	"context"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dataset"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/extract"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/httpexec"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/repo"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/verify"
)

type requestRepo interface {
	Get(ctx context.Context, id int64) (*models.RequestTemplate, error)
}

type datasetRepo interface {
	Get(ctx context.Context, id int64) (*models.Dataset, error)
}

type environmentRepo interface {
	Get(ctx context.Context, id int64) (*models.Environment, error)
	Default(ctx context.Context) (*models.Environment, error)
}

type extractRuleRepo interface {
	ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.ExtractRule, error)
}

type assertRuleRepo interface {
	ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.AssertRule, error)
}

type requestRunRepo interface {
	Create(ctx context.Context, run *models.RequestRun) (int64, error)
}

type runVariableRepo interface {
	CreateBatch(ctx context.Context, requestRunID, requestID int64, scenarioRunID, scenarioCaseID, datasetID *int64, records []models.ExtractRecord) error
}

// CaseRunService executes a single RequestTemplate outside of any scenario
// — used by POST /api/case/run for ad-hoc request testing.
type CaseRunService struct {
	requests     requestRepo
	datasets     datasetRepo
	environments environmentRepo
	extractRules extractRuleRepo
	assertRules  assertRuleRepo
	requestRuns  requestRunRepo
	runVariables runVariableRepo
	engine       *httpexec.Engine
}

func NewCaseRunService(requests requestRepo, datasets datasetRepo, environments environmentRepo, extractRules extractRuleRepo, assertRules assertRuleRepo, requestRuns requestRunRepo, runVariables runVariableRepo, engine *httpexec.Engine) *CaseRunService {
	return &CaseRunService{
		requests: requests, datasets: datasets, environments: environments,
		extractRules: extractRules, assertRules: assertRules,
		requestRuns: requestRuns, runVariables: runVariables, engine: engine,
	}
}

// Run executes req against its request template, persists the result, and
// evaluates extraction/assertions for that request alone.
func (s *CaseRunService) Run(ctx context.Context, req models.CaseRunRequest) (*models.CaseRunResponse, error) {
	tmpl, err := s.requests.Get(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	var ds *models.Dataset
	if req.DatasetID != nil {
		ds, err = s.datasets.Get(ctx, *req.DatasetID)
		if err != nil {
			return nil, err
		}
		if err := dataset.Validate(tmpl, ds); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
	}

	env, err := s.resolveEnvironment(ctx, tmpl, req.EnvID)
	if err != nil {
		return nil, err
	}

	runtimeVars := map[string]dynval.Value{}
	result := s.engine.Execute(ctx, httpexec.Input{Template: tmpl, Dataset: ds, Environment: env, RuntimeVariables: runtimeVars})

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

	records, missingRequired := s.computeExtractions(ctx, tmpl.ID, datasetID, src, runtimeVars)

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
		assertRules, err := s.assertRules.ListByRequest(ctx, tmpl.ID, datasetID)
		if err != nil {
			return nil, fmt.Errorf("loading assert rules: %w", err)
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
		DatasetID:          datasetID,
		DatasetSnapshot:    result.DatasetSnapshot,
		RequestSnapshot:    result.RequestSnapshot,
		ResponseStatusCode: result.ResponseStatusCode,
		ResponseHeaders:    flattenHeaders(result.ResponseHeaders),
		ResponseBody:       result.ResponseBody,
		ResponseTimeMS:     result.ResponseTimeMS,
		IsSuccess:          success,
		ErrorMessage:       errMsg,
	}

	runID, err := s.requestRuns.Create(ctx, requestRun)
	if err != nil {
		return nil, fmt.Errorf("persisting request run: %w", err)
	}
	if err := s.runVariables.CreateBatch(ctx, runID, tmpl.ID, nil, nil, datasetID, records); err != nil {
		return nil, fmt.Errorf("persisting run variables: %w", err)
	}

	extractedVars := make(map[string]any, len(records))
	for _, r := range records {
		extractedVars[r.VarName] = r.VarValue
	}

	resp := &models.CaseRunResponse{
		RunID:              runID,
		IsSuccess:          requestRun.IsSuccess,
		ResponseStatusCode: result.ResponseStatusCode,
		ResponseTimeMS:     result.ResponseTimeMS,
		ExtractedVariables: extractedVars,
		ErrorMessage:       errMsg,
	}

	for _, outcome := range assertOutcomes {
		if outcome.Passed {
			resp.AssertionsPassed++
		} else {
			resp.AssertionsFailed++
		}
	}

	return resp, nil
}

func (s *CaseRunService) resolveEnvironment(ctx context.Context, tmpl *models.RequestTemplate, envID *int64) (*models.Environment, error) {
	id := envID
	if id == nil {
		id = tmpl.EnvID
	}
	if id == nil {
		env, err := s.environments.Default(ctx)
		if err == repo.ErrNotFound {
			return nil, nil
		}
		return env, err
	}
	return s.environments.Get(ctx, *id)
}

func (s *CaseRunService) computeExtractions(ctx context.Context, requestID int64, datasetID *int64, src extract.Source, runtimeVars map[string]dynval.Value) ([]models.ExtractRecord, string) {
	rules, err := s.extractRules.ListByRequest(ctx, requestID, datasetID)
	if err != nil {
		return nil, ""
	}

	var missingRequired string
	records := make([]models.ExtractRecord, 0, len(rules))
	for _, rule := range rules {
		value, found, err := extract.Extract(rule, src)
		if err != nil {
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
		runtimeVars[rule.VarName] = value
	}
	return records, missingRequired
}

// flattenHeaders mirrors pkg/orchestrator's header-flattening so a
// standalone case run persists the same response_headers shape a scenario
// step would.
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
