package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// RequestRunRepo persists exile_api_request_runs rows.
type RequestRunRepo struct {
	db *sql.DB
}

func NewRequestRunRepo(db *sql.DB) *RequestRunRepo { return &RequestRunRepo{db: db} }

// Create inserts one execution record and returns its id.
func (r *RequestRunRepo) Create(ctx context.Context, run *models.RequestRun) (int64, error) {
	datasetSnapshot, err := jsonbIn(run.DatasetSnapshot)
	if err != nil {
		return 0, err
	}
	requestSnapshot, err := jsonbIn(run.RequestSnapshot)
	if err != nil {
		return 0, err
	}
	responseHeaders, err := jsonbIn(run.ResponseHeaders)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO exile_api_request_runs (
			request_id, scenario_run_id, scenario_id, scenario_case_id, dataset_id,
			dataset_snapshot, request_snapshot, response_status_code, response_headers,
			response_body, response_time_ms, is_success, error_message
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		run.RequestID, run.ScenarioRunID, run.ScenarioID, run.ScenarioCaseID, run.DatasetID,
		datasetSnapshot, requestSnapshot, run.ResponseStatusCode, responseHeaders,
		run.ResponseBody, run.ResponseTimeMS, run.IsSuccess, run.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting request run: %w", err)
	}
	return id, nil
}

func (r *RequestRunRepo) Get(ctx context.Context, id int64) (*models.RequestRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, request_id, scenario_run_id, scenario_id, scenario_case_id, dataset_id,
		       dataset_snapshot, request_snapshot, response_status_code, response_headers,
		       response_body, response_time_ms, is_success, error_message,
		       create_time, update_time, is_deleted, status
		FROM exile_api_request_runs WHERE id = $1`, id)
	return scanRequestRun(row)
}

// ListByScenarioRun returns every request run belonging to a scenario run,
// ordered by creation, for report aggregation.
func (r *RequestRunRepo) ListByScenarioRun(ctx context.Context, scenarioRunID int64) ([]*models.RequestRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, scenario_run_id, scenario_id, scenario_case_id, dataset_id,
		       dataset_snapshot, request_snapshot, response_status_code, response_headers,
		       response_body, response_time_ms, is_success, error_message,
		       create_time, update_time, is_deleted, status
		FROM exile_api_request_runs WHERE scenario_run_id = $1 ORDER BY id ASC`, scenarioRunID)
	if err != nil {
		return nil, fmt.Errorf("listing request runs: %w", err)
	}
	defer rows.Close()

	var out []*models.RequestRun
	for rows.Next() {
		run, err := scanRequestRunRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRequestRun(row *sql.Row) (*models.RequestRun, error) {
	run, err := scanRequestRunAny(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return run, err
}

func scanRequestRunRows(rows *sql.Rows) (*models.RequestRun, error) {
	return scanRequestRunAny(rows)
}

func scanRequestRunAny(scanner rowScanner) (*models.RequestRun, error) {
	var run models.RequestRun
	var datasetSnapshot, requestSnapshot, responseHeaders []byte
	if err := scanner.Scan(
		&run.ID, &run.RequestID, &run.ScenarioRunID, &run.ScenarioID, &run.ScenarioCaseID, &run.DatasetID,
		&datasetSnapshot, &requestSnapshot, &run.ResponseStatusCode, &responseHeaders,
		&run.ResponseBody, &run.ResponseTimeMS, &run.IsSuccess, &run.ErrorMessage,
		&run.CreateTime, &run.UpdateTime, &run.IsDeleted, &run.Status,
	); err != nil {
		return nil, fmt.Errorf("scanning request run: %w", err)
	}
	if err := jsonbOut(datasetSnapshot, &run.DatasetSnapshot); err != nil {
		return nil, err
	}
	if err := jsonbOut(requestSnapshot, &run.RequestSnapshot); err != nil {
		return nil, err
	}
	if err := jsonbOut(responseHeaders, &run.ResponseHeaders); err != nil {
		return nil, err
	}
	return &run, nil
}
