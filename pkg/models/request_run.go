package models

// RequestRun is the persisted record of one (RequestTemplate, Dataset)
// execution, standalone or as part of a ScenarioRun.
type RequestRun struct {
	Base
	RequestID      int64  `json:"request_id" db:"request_id"`
	ScenarioRunID  *int64 `json:"scenario_run_id,omitempty" db:"scenario_run_id"`
	ScenarioID     *int64 `json:"scenario_id,omitempty" db:"scenario_id"`
	ScenarioCaseID *int64 `json:"scenario_case_id,omitempty" db:"scenario_case_id"`
	DatasetID      *int64 `json:"dataset_id,omitempty" db:"dataset_id"`

	DatasetSnapshot map[string]any `json:"dataset_snapshot" db:"dataset_snapshot"`
	RequestSnapshot map[string]any `json:"request_snapshot" db:"request_snapshot"`

	ResponseStatusCode *int              `json:"response_status_code,omitempty" db:"response_status_code"`
	ResponseHeaders    map[string]string `json:"response_headers" db:"response_headers"`
	ResponseBody       *string           `json:"response_body,omitempty" db:"response_body"`
	ResponseTimeMS     *int              `json:"response_time_ms,omitempty" db:"response_time_ms"`

	IsSuccess    bool    `json:"is_success" db:"is_success"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
}

// MaxResponseBodyChars is the truncation limit applied to captured response
// bodies, matching the HTTP client's MaxResponseBytes default.
const MaxResponseBodyChars = 200000
