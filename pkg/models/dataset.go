package models

// Dataset carries one row of data-driven parameters for a RequestTemplate,
// overriding whichever base fields it sets and leaving the rest to fall
// back to the template under the C2 merge rules.
type Dataset struct {
	Base
	RequestID  int64  `json:"request_id" db:"request_id"`
	Name       string `json:"name" db:"name"`
	Creator    string `json:"creator,omitempty" db:"creator"`
	CreatorID  *int64 `json:"creator_id,omitempty" db:"creator_id"`
	Modifier   string `json:"modifier,omitempty" db:"modifier"`
	ModifierID *int64 `json:"modifier_id,omitempty" db:"modifier_id"`
	Remark     string `json:"remark,omitempty" db:"remark"`

	Variables   map[string]any    `json:"variables" db:"variables"`
	QueryParams map[string]string `json:"query_params" db:"query_params"`
	Headers     map[string]string `json:"headers" db:"headers"`
	Cookies     map[string]string `json:"cookies" db:"cookies"`
	BodyType    *string           `json:"body_type,omitempty" db:"body_type"`
	BodyData    map[string]any    `json:"body_data" db:"body_data"`
	BodyRaw     *string           `json:"body_raw,omitempty" db:"body_raw"`
	Expected    map[string]any    `json:"expected" db:"expected"`

	IsDefault bool `json:"is_default" db:"is_default"`
	IsEnabled bool `json:"is_enabled" db:"is_enabled"`
	Sort      int  `json:"sort" db:"sort"`
}
