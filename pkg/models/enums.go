package models

// HTTP methods a RequestTemplate may use.
const (
	MethodGET     = "GET"
	MethodPOST    = "POST"
	MethodPUT     = "PUT"
	MethodDELETE  = "DELETE"
	MethodPATCH   = "PATCH"
	MethodHEAD    = "HEAD"
	MethodOPTIONS = "OPTIONS"
)

// Request body types.
const (
	BodyTypeNone            = "none"
	BodyTypeJSON            = "json"
	BodyTypeFormURLEncoded  = "form-urlencoded"
	BodyTypeFormData        = "form-data"
	BodyTypeRaw             = "raw"
	BodyTypeBinary          = "binary"
)

// Dataset execution modes for a RequestTemplate and a ScenarioStep.
const (
	DatasetRunModeSingle         = "single"
	DatasetRunModeAll            = "all"
	DatasetRunModeRequestDefault = "request_default"
)

// Scenario run_mode (stored, never branched on — see Scenario.RunMode).
const (
	ScenarioRunModeSequence = "sequence"
	ScenarioRunModeParallel = "parallel"
)

// ScenarioRun lifecycle states.
const (
	RunStatusQueued   = "queued"
	RunStatusRunning  = "running"
	RunStatusSuccess  = "success"
	RunStatusFailed   = "failed"
	RunStatusCanceled = "canceled"
)

// TerminalRunStatuses are states a ScenarioRun never leaves once reached.
var TerminalRunStatuses = map[string]bool{
	RunStatusSuccess:  true,
	RunStatusFailed:   true,
	RunStatusCanceled: true,
}

// ScenarioRun trigger types.
const (
	TriggerTypeManual   = "manual"
	TriggerTypeSchedule = "schedule"
)

// ExtractRule source types.
const (
	SourceTypeResponseHeader    = "response_header"
	SourceTypeResponseJSON      = "response_json"
	SourceTypeResponseCookie    = "response_cookie"
	SourceTypeResponseTextRegex = "response_text_regex"
	SourceTypeResponseStatus    = "response_status"
	SourceTypeSession           = "session"
)

// Variable scopes: step scoped values are recorded but never promoted to
// the runtime context; scenario and global values are.
const (
	ScopeStep     = "step"
	ScopeScenario = "scenario"
	ScopeGlobal   = "global"
)

// AssertRule assertion types.
const (
	AssertTypeStatusCode   = "status_code"
	AssertTypeJSONPath     = "json_path"
	AssertTypeTextContains = "text_contains"
)

// AssertRule comparators.
const (
	ComparatorEq          = "eq"
	ComparatorNe          = "ne"
	ComparatorContains    = "contains"
	ComparatorNotContains = "not_contains"
)
