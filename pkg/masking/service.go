// Package masking redacts sensitive values before they reach a log sink.
// It applies only to log lines — stored rows and API responses carry
// is_secret values unredacted, since that flag is a carrier for callers
// to decide what to do with, not an instruction to the storage layer.
package masking

import "github.com/ExileLine/exile-ai-test-platform-server/pkg/models"

const redactedPlaceholder = "***"

// Service redacts extracted variable values before logging.
type Service struct{}

func NewService() *Service { return &Service{} }

// RedactRecords returns a copy of records with every is_secret value's
// VarValue replaced by a placeholder, safe to pass to a logger. The
// original slice is left untouched so callers can still persist the
// real values.
func (s *Service) RedactRecords(records []models.ExtractRecord) []models.ExtractRecord {
	out := make([]models.ExtractRecord, len(records))
	for i, r := range records {
		if r.IsSecret {
			r.VarValue = redactedPlaceholder
		}
		out[i] = r
	}
	return out
}

// RedactVariables returns a copy of a runtime variable map with secret
// names replaced by a placeholder, given the set of variable names known
// to be marked is_secret.
func RedactVariables(vars map[string]any, secretNames map[string]bool) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if secretNames[k] {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}
