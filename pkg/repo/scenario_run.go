package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// ScenarioRunRepo manages the exile_test_scenario_runs lifecycle table.
type ScenarioRunRepo struct {
	db *sql.DB
}

func NewScenarioRunRepo(db *sql.DB) *ScenarioRunRepo { return &ScenarioRunRepo{db: db} }

// Create inserts a new run in the queued state and returns its id.
func (r *ScenarioRunRepo) Create(ctx context.Context, scenarioID int64, envID *int64, triggerType string, runtimeVariables map[string]any) (int64, error) {
	variables, err := jsonbIn(runtimeVariables)
	if err != nil {
		return 0, fmt.Errorf("encoding runtime variables: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO exile_test_scenario_runs (scenario_id, env_id, trigger_type, run_status, runtime_variables)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, scenarioID, envID, triggerType, models.RunStatusQueued, variables).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting scenario run: %w", err)
	}
	return id, nil
}

func (r *ScenarioRunRepo) Get(ctx context.Context, id int64) (*models.ScenarioRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, scenario_id, env_id, trigger_type, run_status, cancel_requested,
		       total_request_runs, success_request_runs, failed_request_runs, is_success,
		       runtime_variables, error_message, create_time, update_time, is_deleted, status
		FROM exile_test_scenario_runs WHERE id = $1`, id)
	return scanScenarioRun(row)
}

func scanScenarioRun(row *sql.Row) (*models.ScenarioRun, error) {
	var run models.ScenarioRun
	var variables []byte
	if err := row.Scan(&run.ID, &run.ScenarioID, &run.EnvID, &run.TriggerType, &run.RunStatus, &run.CancelRequested,
		&run.TotalRequestRuns, &run.SuccessRequestRuns, &run.FailedRequestRuns, &run.IsSuccess,
		&variables, &run.ErrorMessage, &run.CreateTime, &run.UpdateTime, &run.IsDeleted, &run.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning scenario run: %w", err)
	}
	if err := jsonbOut(variables, &run.RuntimeVariables); err != nil {
		return nil, err
	}
	return &run, nil
}

// cancelReasonQueued is the error_message recorded when a run is canceled
// directly out of the queued state, before it ever reaches running.
const cancelReasonQueued = "scenario run canceled"

// Claim atomically transitions a queued run to running, mirroring a
// SELECT ... FOR UPDATE SKIP LOCKED claim with a single conditional UPDATE.
// A run whose cancel_requested flag was already set while queued instead
// transitions directly to canceled (canceled=true), never passing through
// running. claimed is true only when the run is now running for this
// worker; both are false (no error) when another worker already claimed it
// or it is no longer queued.
func (r *ScenarioRunRepo) Claim(ctx context.Context, id int64) (claimed bool, canceled bool, err error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE exile_test_scenario_runs
		SET run_status = CASE WHEN cancel_requested THEN $1 ELSE $2 END,
		    error_message = CASE WHEN cancel_requested THEN $3 ELSE error_message END,
		    update_time = now()
		WHERE id = $4 AND run_status = $5
		RETURNING run_status`,
		models.RunStatusCanceled, models.RunStatusRunning, cancelReasonQueued, id, models.RunStatusQueued)

	var status string
	if scanErr := row.Scan(&status); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, fmt.Errorf("claiming scenario run: %w", scanErr)
	}
	if status == models.RunStatusCanceled {
		return false, true, nil
	}
	return true, false, nil
}

// Touch refreshes update_time on a running run, used as the worker
// heartbeat so ListStale doesn't mistake a slow-but-alive run for orphaned.
func (r *ScenarioRunRepo) Touch(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE exile_test_scenario_runs SET update_time = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touching scenario run: %w", err)
	}
	return nil
}

// RequestCancel flips cancel_requested without changing run_status; Claim
// observes it while the run is queued, and the orchestrator's check before
// each step observes it once running, and each transitions to canceled.
func (r *ScenarioRunRepo) RequestCancel(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exile_test_scenario_runs SET cancel_requested = TRUE, update_time = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("requesting scenario run cancel: %w", err)
	}
	return nil
}

// CancelRequested reports the current cancel_requested flag without loading
// the whole row, used by the orchestrator's per-step check.
func (r *ScenarioRunRepo) CancelRequested(ctx context.Context, id int64) (bool, error) {
	var requested bool
	err := r.db.QueryRowContext(ctx, `SELECT cancel_requested FROM exile_test_scenario_runs WHERE id = $1`, id).Scan(&requested)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("reading cancel_requested: %w", err)
	}
	return requested, nil
}

// UpdateProgress increments the running counters as each RequestRun completes.
func (r *ScenarioRunRepo) UpdateProgress(ctx context.Context, id int64, success bool) error {
	column := "failed_request_runs"
	if success {
		column = "success_request_runs"
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE exile_test_scenario_runs
		SET total_request_runs = total_request_runs + 1, %s = %s + 1, update_time = now()
		WHERE id = $1`, column, column), id)
	if err != nil {
		return fmt.Errorf("updating scenario run progress: %w", err)
	}
	return nil
}

// Finish transitions a run into its terminal state, persisting the final
// runtime variable context and, on failure, an error message.
func (r *ScenarioRunRepo) Finish(ctx context.Context, id int64, status string, isSuccess bool, runtimeVariables map[string]any, errMsg *string) error {
	variables, err := jsonbIn(runtimeVariables)
	if err != nil {
		return fmt.Errorf("encoding runtime variables: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE exile_test_scenario_runs
		SET run_status = $1, is_success = $2, runtime_variables = $3, error_message = $4, update_time = now()
		WHERE id = $5`, status, isSuccess, variables, errMsg, id)
	if err != nil {
		return fmt.Errorf("finishing scenario run: %w", err)
	}
	return nil
}

// ListStale returns running runs whose update_time is older than the given
// heartbeat cutoff, used by the orphan-run sweep.
func (r *ScenarioRunRepo) ListStale(ctx context.Context, olderThanSeconds int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM exile_test_scenario_runs
		WHERE run_status = $1 AND update_time < now() - make_interval(secs => $2)`,
		models.RunStatusRunning, olderThanSeconds)
	if err != nil {
		return nil, fmt.Errorf("listing stale scenario runs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
