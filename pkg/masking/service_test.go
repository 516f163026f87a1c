package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

func TestRedactRecords_ReplacesOnlySecretValues(t *testing.T) {
	s := NewService()
	records := []models.ExtractRecord{
		{VarName: "token", VarValue: "abc123", IsSecret: true},
		{VarName: "status", VarValue: "ok", IsSecret: false},
	}

	redacted := s.RedactRecords(records)
	assert.Equal(t, "***", redacted[0].VarValue)
	assert.Equal(t, "ok", redacted[1].VarValue)

	assert.Equal(t, "abc123", records[0].VarValue, "original slice must be untouched")
}

func TestRedactVariables_ReplacesNamedSecrets(t *testing.T) {
	vars := map[string]any{"token": "abc123", "status": "ok"}
	redacted := RedactVariables(vars, map[string]bool{"token": true})

	assert.Equal(t, "***", redacted["token"])
	assert.Equal(t, "ok", redacted["status"])
}
