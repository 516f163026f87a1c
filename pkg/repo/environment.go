package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// EnvironmentRepo reads and writes exile_api_environments rows.
type EnvironmentRepo struct {
	db *sql.DB
}

func NewEnvironmentRepo(db *sql.DB) *EnvironmentRepo { return &EnvironmentRepo{db: db} }

func (r *EnvironmentRepo) Get(ctx context.Context, id int64) (*models.Environment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, variables, is_default, create_time, update_time, is_deleted, status
		FROM exile_api_environments WHERE id = $1 AND is_deleted = 0`, id)
	return scanEnvironment(row)
}

func (r *EnvironmentRepo) Default(ctx context.Context) (*models.Environment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, variables, is_default, create_time, update_time, is_deleted, status
		FROM exile_api_environments WHERE is_default = TRUE AND is_deleted = 0 LIMIT 1`)
	return scanEnvironment(row)
}

func scanEnvironment(row *sql.Row) (*models.Environment, error) {
	var env models.Environment
	var variables []byte
	if err := row.Scan(&env.ID, &env.Name, &variables, &env.IsDefault, &env.CreateTime, &env.UpdateTime, &env.IsDeleted, &env.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning environment: %w", err)
	}
	if err := jsonbOut(variables, &env.Variables); err != nil {
		return nil, fmt.Errorf("decoding environment variables: %w", err)
	}
	return &env, nil
}
