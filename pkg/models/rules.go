package models

// ExtractRule describes how to pull one named variable out of an execution
// result into the runtime variable context.
type ExtractRule struct {
	Base
	RequestID    int64  `json:"request_id" db:"request_id"`
	DatasetID    *int64 `json:"dataset_id,omitempty" db:"dataset_id"`
	VarName      string `json:"var_name" db:"var_name"`
	SourceType   string `json:"source_type" db:"source_type"`
	SourceExpr   string `json:"source_expr,omitempty" db:"source_expr"`
	Required     bool   `json:"required" db:"required"`
	DefaultValue any    `json:"default_value,omitempty" db:"default_value"`
	Scope        string `json:"scope" db:"scope"`
	IsSecret     bool   `json:"is_secret" db:"is_secret"`
	IsEnabled    bool   `json:"is_enabled" db:"is_enabled"`
	Sort         int    `json:"sort" db:"sort"`
}

// AssertRule describes one check performed against an execution result.
type AssertRule struct {
	Base
	RequestID     int64  `json:"request_id" db:"request_id"`
	DatasetID     *int64 `json:"dataset_id,omitempty" db:"dataset_id"`
	AssertType    string `json:"assert_type" db:"assert_type"`
	SourceExpr    string `json:"source_expr,omitempty" db:"source_expr"`
	Comparator    string `json:"comparator" db:"comparator"`
	ExpectedValue any    `json:"expected_value,omitempty" db:"expected_value"`
	Message       string `json:"message,omitempty" db:"message"`
	IsEnabled     bool   `json:"is_enabled" db:"is_enabled"`
	Sort          int    `json:"sort" db:"sort"`
}
