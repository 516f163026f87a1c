package models

// ScenarioRun is one execution of a Scenario, moving through the
// queued -> running -> {success, failed, canceled} state machine.
type ScenarioRun struct {
	Base
	ScenarioID         int64          `json:"scenario_id" db:"scenario_id"`
	EnvID              *int64         `json:"env_id,omitempty" db:"env_id"`
	TriggerType        string         `json:"trigger_type" db:"trigger_type"`
	RunStatus          string         `json:"run_status" db:"run_status"`
	CancelRequested    bool           `json:"cancel_requested" db:"cancel_requested"`
	TotalRequestRuns   int            `json:"total_request_runs" db:"total_request_runs"`
	SuccessRequestRuns int            `json:"success_request_runs" db:"success_request_runs"`
	FailedRequestRuns  int            `json:"failed_request_runs" db:"failed_request_runs"`
	IsSuccess          bool           `json:"is_success" db:"is_success"`
	RuntimeVariables   map[string]any `json:"runtime_variables" db:"runtime_variables"`
	ErrorMessage       *string        `json:"error_message,omitempty" db:"error_message"`
}

// Terminal reports whether the run has reached a state it can never leave.
func (r ScenarioRun) Terminal() bool {
	return TerminalRunStatuses[r.RunStatus]
}
