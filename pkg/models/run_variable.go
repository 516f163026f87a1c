package models

// RunVariable is the immutable ledger entry written for every value an
// ExtractRule produced during a run, independent of whether that value was
// promoted into the runtime context.
type RunVariable struct {
	Base
	ScenarioRunID  *int64 `json:"scenario_run_id,omitempty" db:"scenario_run_id"`
	RequestRunID   int64  `json:"request_run_id" db:"request_run_id"`
	ScenarioCaseID *int64 `json:"scenario_case_id,omitempty" db:"scenario_case_id"`
	RequestID      int64  `json:"request_id" db:"request_id"`
	DatasetID      *int64 `json:"dataset_id,omitempty" db:"dataset_id"`

	VarName    string `json:"var_name" db:"var_name"`
	VarValue   any    `json:"var_value,omitempty" db:"var_value"`
	ValueType  string `json:"value_type" db:"value_type"`
	SourceType string `json:"source_type" db:"source_type"`
	SourceExpr string `json:"source_expr,omitempty" db:"source_expr"`
	Scope      string `json:"scope" db:"scope"`
	IsSecret   bool   `json:"is_secret" db:"is_secret"`
}

// ExtractRecord is the in-memory result of applying one ExtractRule,
// before it is persisted as a RunVariable row.
type ExtractRecord struct {
	VarName    string
	VarValue   any
	ValueType  string
	SourceType string
	SourceExpr string
	Scope      string
	IsSecret   bool
}
