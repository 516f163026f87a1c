package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// RunVariableRepo persists exile_api_run_variables rows, the immutable
// ledger of every value an ExtractRule produced during a run.
type RunVariableRepo struct {
	db *sql.DB
}

func NewRunVariableRepo(db *sql.DB) *RunVariableRepo { return &RunVariableRepo{db: db} }

// CreateBatch inserts one row per ExtractRecord produced for a RequestRun.
func (r *RunVariableRepo) CreateBatch(ctx context.Context, requestRunID, requestID int64, scenarioRunID, scenarioCaseID, datasetID *int64, records []models.ExtractRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		value, err := jsonbIn(rec.VarValue)
		if err != nil {
			return fmt.Errorf("encoding run variable %s: %w", rec.VarName, err)
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO exile_api_run_variables (
				scenario_run_id, request_run_id, scenario_case_id, request_id, dataset_id,
				var_name, var_value, value_type, source_type, source_expr, scope, is_secret
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			scenarioRunID, requestRunID, scenarioCaseID, requestID, datasetID,
			rec.VarName, value, rec.ValueType, rec.SourceType, rec.SourceExpr, rec.Scope, rec.IsSecret)
		if err != nil {
			return fmt.Errorf("inserting run variable %s: %w", rec.VarName, err)
		}
	}
	return nil
}

func (r *RunVariableRepo) ListByScenarioRun(ctx context.Context, scenarioRunID int64) ([]*models.RunVariable, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scenario_run_id, request_run_id, scenario_case_id, request_id, dataset_id,
		       var_name, var_value, value_type, source_type, source_expr, scope, is_secret,
		       create_time, update_time, is_deleted, status
		FROM exile_api_run_variables WHERE scenario_run_id = $1 ORDER BY id ASC`, scenarioRunID)
	if err != nil {
		return nil, fmt.Errorf("listing run variables: %w", err)
	}
	defer rows.Close()

	var out []*models.RunVariable
	for rows.Next() {
		var rv models.RunVariable
		var value []byte
		if err := rows.Scan(&rv.ID, &rv.ScenarioRunID, &rv.RequestRunID, &rv.ScenarioCaseID, &rv.RequestID, &rv.DatasetID,
			&rv.VarName, &value, &rv.ValueType, &rv.SourceType, &rv.SourceExpr, &rv.Scope, &rv.IsSecret,
			&rv.CreateTime, &rv.UpdateTime, &rv.IsDeleted, &rv.Status); err != nil {
			return nil, fmt.Errorf("scanning run variable: %w", err)
		}
		if len(value) > 0 {
			if err := jsonbOut(value, &rv.VarValue); err != nil {
				return nil, err
			}
		}
		out = append(out, &rv)
	}
	return out, rows.Err()
}
