// Package report implements the report builder (C9): given a scenario
// run id, it aggregates the run's persisted RequestRun rows into an
// overall summary plus a per-step breakdown. It is pure read-side
// aggregation — it never re-executes requests and never mutates state.
package report

import (
	"context"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

type scenarioRunRepo interface {
	Get(ctx context.Context, id int64) (*models.ScenarioRun, error)
}

type scenarioStepRepo interface {
	ListByScenario(ctx context.Context, scenarioID int64) ([]*models.ScenarioStep, error)
}

type requestRepo interface {
	Get(ctx context.Context, id int64) (*models.RequestTemplate, error)
}

type requestRunRepo interface {
	ListByScenarioRun(ctx context.Context, scenarioRunID int64) ([]*models.RequestRun, error)
}

// Builder assembles a ScenarioReport from the repositories it reads from.
type Builder struct {
	runs     scenarioRunRepo
	steps    scenarioStepRepo
	requests requestRepo
	runsLog  requestRunRepo
}

func NewBuilder(runs scenarioRunRepo, steps scenarioStepRepo, requests requestRepo, runsLog requestRunRepo) *Builder {
	return &Builder{runs: runs, steps: steps, requests: requests, runsLog: runsLog}
}

// Build assembles the report for the given scenario run.
func (b *Builder) Build(ctx context.Context, scenarioRunID int64) (*models.ScenarioReport, error) {
	run, err := b.runs.Get(ctx, scenarioRunID)
	if err != nil {
		return nil, fmt.Errorf("loading scenario run: %w", err)
	}

	steps, err := b.steps.ListByScenario(ctx, run.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("loading scenario steps: %w", err)
	}
	stepByID := make(map[int64]*models.ScenarioStep, len(steps))
	for _, s := range steps {
		stepByID[s.ID] = s
	}

	requestRuns, err := b.runsLog.ListByScenarioRun(ctx, scenarioRunID)
	if err != nil {
		return nil, fmt.Errorf("loading request runs: %w", err)
	}

	report := &models.ScenarioReport{
		ScenarioRunID:      run.ID,
		ScenarioID:         run.ScenarioID,
		RunStatus:          run.RunStatus,
		IsSuccess:          run.IsSuccess,
		TotalRequestRuns:   run.TotalRequestRuns,
		SuccessRequestRuns: run.SuccessRequestRuns,
		FailedRequestRuns:  run.FailedRequestRuns,
		ErrorMessage:       run.ErrorMessage,
	}
	if d := run.UpdateTime.Sub(run.CreateTime).Milliseconds(); d >= 0 {
		report.DurationMS = &d
	}

	order := make([]int64, 0)
	grouped := make(map[int64][]*models.RequestRun)
	for _, rr := range requestRuns {
		if rr.ScenarioCaseID == nil {
			continue
		}
		caseID := *rr.ScenarioCaseID
		if _, seen := grouped[caseID]; !seen {
			order = append(order, caseID)
		}
		grouped[caseID] = append(grouped[caseID], rr)
	}

	nameCache := make(map[int64]string)
	for _, caseID := range order {
		runsForStep := grouped[caseID]
		step := stepByID[caseID]

		summary := models.ScenarioReportStepSummary{}
		if step != nil {
			summary.StepNo = step.StepNo
			summary.RequestID = step.RequestID
			summary.RequestName = b.requestName(ctx, nameCache, step.RequestID)
		} else if len(runsForStep) > 0 {
			summary.RequestID = runsForStep[0].RequestID
			summary.RequestName = b.requestName(ctx, nameCache, runsForStep[0].RequestID)
		}

		var totalTimeMS, timedRuns int
		for _, rr := range runsForStep {
			summary.TotalRuns++
			if rr.IsSuccess {
				summary.SuccessRuns++
			} else {
				summary.FailedRuns++
			}
			if rr.ResponseTimeMS != nil {
				totalTimeMS += *rr.ResponseTimeMS
				timedRuns++
			}
		}
		if timedRuns > 0 {
			summary.AvgTimeMS = float64(totalTimeMS) / float64(timedRuns)
		}
		report.Steps = append(report.Steps, summary)
	}

	return report, nil
}

func (b *Builder) requestName(ctx context.Context, cache map[int64]string, requestID int64) string {
	if name, ok := cache[requestID]; ok {
		return name
	}
	tmpl, err := b.requests.Get(ctx, requestID)
	if err != nil {
		return ""
	}
	cache[requestID] = tmpl.Name
	return tmpl.Name
}
