package models

// Scenario groups an ordered sequence of request-template steps.
type Scenario struct {
	Base
	EnvID       *int64 `json:"env_id,omitempty" db:"env_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	// RunMode is stored for forward compatibility with a parallel executor;
	// this implementation always runs steps sequentially regardless of its
	// value (see the orchestrator's non-goal on parallel execution).
	RunMode    string `json:"run_mode" db:"run_mode"`
	StopOnFail bool   `json:"stop_on_fail" db:"stop_on_fail"`
	Sort       int    `json:"sort" db:"sort"`
}

// ScenarioStep binds one RequestTemplate into a Scenario at a given
// position, optionally pinning a fixed Dataset.
type ScenarioStep struct {
	Base
	ScenarioID     int64  `json:"scenario_id" db:"scenario_id"`
	RequestID      int64  `json:"request_id" db:"request_id"`
	StepNo         int    `json:"step_no" db:"step_no"`
	DatasetID      *int64 `json:"dataset_id,omitempty" db:"dataset_id"`
	DatasetRunMode string `json:"dataset_run_mode" db:"dataset_run_mode"`
	IsEnabled      bool   `json:"is_enabled" db:"is_enabled"`
	StopOnFail     bool   `json:"stop_on_fail" db:"stop_on_fail"`
}
