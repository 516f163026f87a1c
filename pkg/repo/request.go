package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// RequestRepo reads exile_api_requests rows.
type RequestRepo struct {
	db *sql.DB
}

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const requestColumns = `
	id, env_id, name, method, url, creator, creator_id, modifier, modifier_id, remark,
	base_query_params, base_headers, base_cookies, body_type, base_body_data, base_body_raw,
	timeout_ms, follow_redirects, verify_ssl, proxy_url, sort, execute_count, case_status,
	is_copied_case, is_public_visible, creator_only_execute, data_driven_enabled,
	dataset_run_mode, default_dataset_id, create_time, update_time, is_deleted, status`

func (r *RequestRepo) Get(ctx context.Context, id int64) (*models.RequestTemplate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM exile_api_requests WHERE id = $1 AND is_deleted = 0`, id)
	return scanRequest(row)
}

func scanRequest(row *sql.Row) (*models.RequestTemplate, error) {
	var tmpl models.RequestTemplate
	var queryParams, headers, cookies, bodyData []byte
	if err := row.Scan(
		&tmpl.ID, &tmpl.EnvID, &tmpl.Name, &tmpl.Method, &tmpl.URL, &tmpl.Creator, &tmpl.CreatorID,
		&tmpl.Modifier, &tmpl.ModifierID, &tmpl.Remark,
		&queryParams, &headers, &cookies, &tmpl.BodyType, &bodyData, &tmpl.BaseBodyRaw,
		&tmpl.TimeoutMS, &tmpl.FollowRedirects, &tmpl.VerifySSL, &tmpl.ProxyURL, &tmpl.Sort,
		&tmpl.ExecuteCount, &tmpl.CaseStatus, &tmpl.IsCopiedCase, &tmpl.IsPublicVisible,
		&tmpl.CreatorOnlyExecute, &tmpl.DataDrivenEnabled, &tmpl.DatasetRunMode, &tmpl.DefaultDatasetID,
		&tmpl.CreateTime, &tmpl.UpdateTime, &tmpl.IsDeleted, &tmpl.Status,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning request template: %w", err)
	}
	if err := jsonbOut(queryParams, &tmpl.BaseQueryParams); err != nil {
		return nil, err
	}
	if err := jsonbOut(headers, &tmpl.BaseHeaders); err != nil {
		return nil, err
	}
	if err := jsonbOut(cookies, &tmpl.BaseCookies); err != nil {
		return nil, err
	}
	if err := jsonbOut(bodyData, &tmpl.BaseBodyData); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// DatasetRepo reads exile_api_request_datasets rows.
type DatasetRepo struct {
	db *sql.DB
}

func NewDatasetRepo(db *sql.DB) *DatasetRepo { return &DatasetRepo{db: db} }

const datasetColumns = `
	id, request_id, name, creator, creator_id, modifier, modifier_id, remark,
	variables, query_params, headers, cookies, body_type, body_data, body_raw, expected,
	is_default, is_enabled, sort, create_time, update_time, is_deleted, status`

func (r *DatasetRepo) Get(ctx context.Context, id int64) (*models.Dataset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM exile_api_request_datasets WHERE id = $1 AND is_deleted = 0`, id)
	return scanDataset(row)
}

func (r *DatasetRepo) ListByRequest(ctx context.Context, requestID int64) ([]*models.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+datasetColumns+` FROM exile_api_request_datasets
		WHERE request_id = $1 AND is_deleted = 0 ORDER BY sort ASC, id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	defer rows.Close()

	var out []*models.Dataset
	for rows.Next() {
		ds, err := scanDatasetRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row *sql.Row) (*models.Dataset, error) {
	ds, err := scanDatasetAny(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return ds, err
}

func scanDatasetRows(rows *sql.Rows) (*models.Dataset, error) {
	return scanDatasetAny(rows)
}

func scanDatasetAny(scanner rowScanner) (*models.Dataset, error) {
	var ds models.Dataset
	var variables, queryParams, headers, cookies, bodyData, expected []byte
	if err := scanner.Scan(
		&ds.ID, &ds.RequestID, &ds.Name, &ds.Creator, &ds.CreatorID, &ds.Modifier, &ds.ModifierID, &ds.Remark,
		&variables, &queryParams, &headers, &cookies, &ds.BodyType, &bodyData, &ds.BodyRaw, &expected,
		&ds.IsDefault, &ds.IsEnabled, &ds.Sort, &ds.CreateTime, &ds.UpdateTime, &ds.IsDeleted, &ds.Status,
	); err != nil {
		return nil, fmt.Errorf("scanning dataset: %w", err)
	}
	for _, pair := range []struct {
		data []byte
		dst  any
	}{
		{variables, &ds.Variables}, {queryParams, &ds.QueryParams}, {headers, &ds.Headers},
		{cookies, &ds.Cookies}, {bodyData, &ds.BodyData}, {expected, &ds.Expected},
	} {
		if err := jsonbOut(pair.data, pair.dst); err != nil {
			return nil, err
		}
	}
	return &ds, nil
}
