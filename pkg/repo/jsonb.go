// Package repo implements data access over plain SQL against the schema in
// pkg/database/migrations, one file per entity family. It replaces a
// generated ORM client with hand-written queries against *sql.DB.
package repo

import "encoding/json"

// jsonbIn marshals a Go value for a jsonb column, normalizing nil maps to
// an empty object so every row always carries valid JSON.
func jsonbIn(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// jsonbOut unmarshals a jsonb column into dst, treating a NULL/empty column
// as a no-op so dst keeps its zero value.
func jsonbOut(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
