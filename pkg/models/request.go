package models

// RequestTemplate is the reusable, parameterized definition of a single
// executable API request (the "test case" of the original system).
type RequestTemplate struct {
	Base
	EnvID      *int64 `json:"env_id,omitempty" db:"env_id"`
	Name       string `json:"name" db:"name"`
	Method     string `json:"method" db:"method"`
	URL        string `json:"url" db:"url"`
	Creator    string `json:"creator,omitempty" db:"creator"`
	CreatorID  *int64 `json:"creator_id,omitempty" db:"creator_id"`
	Modifier   string `json:"modifier,omitempty" db:"modifier"`
	ModifierID *int64 `json:"modifier_id,omitempty" db:"modifier_id"`
	Remark     string `json:"remark,omitempty" db:"remark"`

	BaseQueryParams map[string]string `json:"base_query_params" db:"base_query_params"`
	BaseHeaders     map[string]string `json:"base_headers" db:"base_headers"`
	BaseCookies     map[string]string `json:"base_cookies" db:"base_cookies"`

	BodyType     string         `json:"body_type" db:"body_type"`
	BaseBodyData map[string]any `json:"base_body_data" db:"base_body_data"`
	BaseBodyRaw  *string        `json:"base_body_raw,omitempty" db:"base_body_raw"`

	TimeoutMS       int    `json:"timeout_ms" db:"timeout_ms"`
	FollowRedirects bool   `json:"follow_redirects" db:"follow_redirects"`
	VerifySSL       bool   `json:"verify_ssl" db:"verify_ssl"`
	ProxyURL        string `json:"proxy_url,omitempty" db:"proxy_url"`
	Sort            int    `json:"sort" db:"sort"`

	ExecuteCount        int    `json:"execute_count" db:"execute_count"`
	CaseStatus          string `json:"case_status" db:"case_status"`
	IsCopiedCase        bool   `json:"is_copied_case" db:"is_copied_case"`
	IsPublicVisible     bool   `json:"is_public_visible" db:"is_public_visible"`
	CreatorOnlyExecute  bool   `json:"creator_only_execute" db:"creator_only_execute"`
	DataDrivenEnabled   bool   `json:"data_driven_enabled" db:"data_driven_enabled"`
	DatasetRunMode      string `json:"dataset_run_mode" db:"dataset_run_mode"`
	DefaultDatasetID    *int64 `json:"default_dataset_id,omitempty" db:"default_dataset_id"`
}
