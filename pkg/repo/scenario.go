package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// ScenarioRepo reads exile_test_scenarios rows.
type ScenarioRepo struct {
	db *sql.DB
}

func NewScenarioRepo(db *sql.DB) *ScenarioRepo { return &ScenarioRepo{db: db} }

func (r *ScenarioRepo) Get(ctx context.Context, id int64) (*models.Scenario, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, env_id, name, description, run_mode, stop_on_fail, sort, create_time, update_time, is_deleted, status
		FROM exile_test_scenarios WHERE id = $1 AND is_deleted = 0`, id)

	var s models.Scenario
	if err := row.Scan(&s.ID, &s.EnvID, &s.Name, &s.Description, &s.RunMode, &s.StopOnFail, &s.Sort,
		&s.CreateTime, &s.UpdateTime, &s.IsDeleted, &s.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning scenario: %w", err)
	}
	return &s, nil
}

// ScenarioStepRepo reads exile_test_scenario_cases rows — the scenario's
// ordered request steps, carried over from the system's "scenario case"
// naming.
type ScenarioStepRepo struct {
	db *sql.DB
}

func NewScenarioStepRepo(db *sql.DB) *ScenarioStepRepo { return &ScenarioStepRepo{db: db} }

func (r *ScenarioStepRepo) ListByScenario(ctx context.Context, scenarioID int64) ([]*models.ScenarioStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scenario_id, request_id, step_no, dataset_id, dataset_run_mode, is_enabled, stop_on_fail,
		       create_time, update_time, is_deleted, status
		FROM exile_test_scenario_cases
		WHERE scenario_id = $1 AND is_deleted = 0 AND is_enabled = TRUE
		ORDER BY step_no ASC, id ASC`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("listing scenario steps: %w", err)
	}
	defer rows.Close()

	var out []*models.ScenarioStep
	for rows.Next() {
		var step models.ScenarioStep
		if err := rows.Scan(&step.ID, &step.ScenarioID, &step.RequestID, &step.StepNo, &step.DatasetID,
			&step.DatasetRunMode, &step.IsEnabled, &step.StopOnFail,
			&step.CreateTime, &step.UpdateTime, &step.IsDeleted, &step.Status); err != nil {
			return nil, fmt.Errorf("scanning scenario step: %w", err)
		}
		out = append(out, &step)
	}
	return out, rows.Err()
}
