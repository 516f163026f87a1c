package models

// CaseRunRequest is the body of POST /api/case/run.
type CaseRunRequest struct {
	RequestID int64  `json:"request_id" binding:"required"`
	DatasetID *int64 `json:"dataset_id,omitempty"`
	EnvID     *int64 `json:"env_id,omitempty"`
}

// CaseRunResponse is the data payload returned for a completed case run.
type CaseRunResponse struct {
	RunID               int64          `json:"run_id"`
	IsSuccess           bool           `json:"is_success"`
	ResponseStatusCode  *int           `json:"response_status_code,omitempty"`
	ResponseTimeMS      *int           `json:"response_time_ms,omitempty"`
	ExtractedVariables  map[string]any `json:"extracted_variables"`
	AssertionsPassed    int            `json:"assertions_passed"`
	AssertionsFailed    int            `json:"assertions_failed"`
	ErrorMessage        *string        `json:"error_message,omitempty"`
}

// ScenarioRunRequest is the body of POST /api/scenario/run.
type ScenarioRunRequest struct {
	ScenarioID       int64          `json:"scenario_id" binding:"required"`
	EnvID            *int64         `json:"env_id,omitempty"`
	TriggerType      string         `json:"trigger_type"`
	InitialVariables map[string]any `json:"initial_variables"`
}

// ScenarioRunAcceptedResponse is the data payload returned once a scenario
// run has been enqueued.
type ScenarioRunAcceptedResponse struct {
	ScenarioRunID int64  `json:"scenario_run_id"`
	RunStatus     string `json:"run_status"`
	TaskID        string `json:"task_id,omitempty"`
}

// ScenarioRunCancelRequest is the body of POST /api/scenario/run/cancel.
type ScenarioRunCancelRequest struct {
	ScenarioRunID int64 `json:"scenario_run_id" binding:"required"`
}

// ScenarioReportStepSummary summarizes one scenario step's request runs.
type ScenarioReportStepSummary struct {
	StepNo       int    `json:"step_no"`
	RequestID    int64  `json:"request_id"`
	RequestName  string `json:"request_name"`
	TotalRuns    int    `json:"total_runs"`
	SuccessRuns  int    `json:"success_runs"`
	FailedRuns   int    `json:"failed_runs"`
	AvgTimeMS    float64 `json:"avg_time_ms"`
}

// ScenarioReport is the data payload returned by the report endpoint (C9).
type ScenarioReport struct {
	ScenarioRunID      int64                       `json:"scenario_run_id"`
	ScenarioID         int64                       `json:"scenario_id"`
	RunStatus          string                      `json:"run_status"`
	IsSuccess          bool                        `json:"is_success"`
	TotalRequestRuns   int                         `json:"total_request_runs"`
	SuccessRequestRuns int                         `json:"success_request_runs"`
	FailedRequestRuns  int                         `json:"failed_request_runs"`
	DurationMS         *int64                      `json:"duration_ms,omitempty"`
	Steps              []ScenarioReportStepSummary `json:"steps"`
	ErrorMessage       *string                     `json:"error_message,omitempty"`
}

// HealthResponse is the data payload for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Broker   string `json:"broker"`
}
