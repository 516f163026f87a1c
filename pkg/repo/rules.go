package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// ExtractRuleRepo reads exile_api_extract_rules rows.
type ExtractRuleRepo struct {
	db *sql.DB
}

func NewExtractRuleRepo(db *sql.DB) *ExtractRuleRepo { return &ExtractRuleRepo{db: db} }

// ListByRequest returns the enabled extract rules for a request, optionally
// narrowed to those written for a specific dataset plus the dataset-agnostic
// ones (dataset_id IS NULL).
func (r *ExtractRuleRepo) ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.ExtractRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, dataset_id, var_name, source_type, source_expr, required,
		       default_value, scope, is_secret, is_enabled, sort, create_time, update_time, is_deleted, status
		FROM exile_api_extract_rules
		WHERE request_id = $1 AND is_deleted = 0 AND is_enabled = TRUE
		  AND (dataset_id IS NULL OR dataset_id = $2)
		ORDER BY sort ASC, id ASC`, requestID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("listing extract rules: %w", err)
	}
	defer rows.Close()

	var out []*models.ExtractRule
	for rows.Next() {
		var rule models.ExtractRule
		var defaultValue []byte
		if err := rows.Scan(&rule.ID, &rule.RequestID, &rule.DatasetID, &rule.VarName, &rule.SourceType,
			&rule.SourceExpr, &rule.Required, &defaultValue, &rule.Scope, &rule.IsSecret, &rule.IsEnabled,
			&rule.Sort, &rule.CreateTime, &rule.UpdateTime, &rule.IsDeleted, &rule.Status); err != nil {
			return nil, fmt.Errorf("scanning extract rule: %w", err)
		}
		if len(defaultValue) > 0 {
			if err := jsonbOut(defaultValue, &rule.DefaultValue); err != nil {
				return nil, err
			}
		}
		out = append(out, &rule)
	}
	return out, rows.Err()
}

// AssertRuleRepo reads exile_api_assert_rules rows.
type AssertRuleRepo struct {
	db *sql.DB
}

func NewAssertRuleRepo(db *sql.DB) *AssertRuleRepo { return &AssertRuleRepo{db: db} }

func (r *AssertRuleRepo) ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.AssertRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, dataset_id, assert_type, source_expr, comparator, expected_value,
		       message, is_enabled, sort, create_time, update_time, is_deleted, status
		FROM exile_api_assert_rules
		WHERE request_id = $1 AND is_deleted = 0 AND is_enabled = TRUE
		  AND (dataset_id IS NULL OR dataset_id = $2)
		ORDER BY sort ASC, id ASC`, requestID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("listing assert rules: %w", err)
	}
	defer rows.Close()

	var out []*models.AssertRule
	for rows.Next() {
		var rule models.AssertRule
		var expectedValue []byte
		if err := rows.Scan(&rule.ID, &rule.RequestID, &rule.DatasetID, &rule.AssertType, &rule.SourceExpr,
			&rule.Comparator, &expectedValue, &rule.Message, &rule.IsEnabled, &rule.Sort,
			&rule.CreateTime, &rule.UpdateTime, &rule.IsDeleted, &rule.Status); err != nil {
			return nil, fmt.Errorf("scanning assert rule: %w", err)
		}
		if len(expectedValue) > 0 {
			if err := jsonbOut(expectedValue, &rule.ExpectedValue); err != nil {
				return nil, err
			}
		}
		out = append(out, &rule)
	}
	return out, rows.Err()
}
