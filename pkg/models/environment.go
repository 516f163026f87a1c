package models

// Environment holds a named set of variables resolved ahead of Dataset and
// runtime values in the C2 merge order.
type Environment struct {
	Base
	Name      string         `json:"name" db:"name"`
	Variables map[string]any `json:"variables" db:"variables"`
	IsDefault bool           `json:"is_default" db:"is_default"`
}
