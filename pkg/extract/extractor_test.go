package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

func TestExtract_ResponseStatus(t *testing.T) {
	code := 201
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseStatus}
	v, ok, err := Extract(rule, Source{StatusCode: &code})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(201), v.Int())
}

func TestExtract_ResponseHeaderCaseInsensitive(t *testing.T) {
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseHeader, SourceExpr: "x-request-id"}
	v, ok, err := Extract(rule, Source{Headers: map[string]any{"X-Request-Id": "abc-123"}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc-123", v.Str())
}

func TestExtract_ResponseCookie(t *testing.T) {
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseCookie, SourceExpr: "session_id"}
	v, ok, err := Extract(rule, Source{Headers: map[string]any{"Set-Cookie": "session_id=xyz; Path=/"}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "xyz", v.Str())
}

func TestExtract_ResponseJSONPathWithArrayIndex(t *testing.T) {
	body := `{"data":{"items":[{"id":1},{"id":2}]}}`
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseJSON, SourceExpr: "$.data.items[1].id"}
	v, ok, err := Extract(rule, Source{Body: &body})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Int())
}

func TestExtract_ResponseJSONPathOutOfRangeIsNotFound(t *testing.T) {
	body := `{"items":[1,2]}`
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseJSON, SourceExpr: "items[5]"}
	_, ok, err := Extract(rule, Source{Body: &body})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtract_ResponseJSONPathNonDigitBracketIsNotFound(t *testing.T) {
	body := `{"items":[1,2]}`
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseJSON, SourceExpr: "items[a]"}
	_, ok, err := Extract(rule, Source{Body: &body})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtract_ResponseTextRegexCaptureGroup(t *testing.T) {
	body := "token=abc123;expires=600"
	rule := &models.ExtractRule{SourceType: models.SourceTypeResponseTextRegex, SourceExpr: `token=(\w+);`}
	v, ok, err := Extract(rule, Source{Body: &body})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", v.Str())
}

func TestExtract_SessionReadsFromVariables(t *testing.T) {
	rule := &models.ExtractRule{SourceType: models.SourceTypeSession, SourceExpr: "auth_token"}
	v, ok, err := Extract(rule, Source{Variables: map[string]dynval.Value{"auth_token": dynval.String("tok")}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok", v.Str())
}

func TestExtract_SessionFallsBackToVarNameWhenExprAbsent(t *testing.T) {
	rule := &models.ExtractRule{SourceType: models.SourceTypeSession, VarName: "auth_token"}
	v, ok, err := Extract(rule, Source{Variables: map[string]dynval.Value{"auth_token": dynval.String("tok")}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok", v.Str())
}

func TestExtract_UnknownSourceTypeErrors(t *testing.T) {
	rule := &models.ExtractRule{SourceType: "nonsense"}
	_, _, err := Extract(rule, Source{})
	require.Error(t, err)
	var target *UnknownSourceTypeError
	assert.ErrorAs(t, err, &target)
}
