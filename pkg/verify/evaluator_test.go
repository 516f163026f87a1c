package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/extract"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

func TestEvaluate_StatusCodeEqPasses(t *testing.T) {
	code := 200
	rules := []*models.AssertRule{{AssertType: models.AssertTypeStatusCode, Comparator: models.ComparatorEq, ExpectedValue: float64(200), IsEnabled: true}}
	outcomes := Evaluate(rules, extract.Source{StatusCode: &code})
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Passed)
}

func TestEvaluate_JSONPathNotEqualFails(t *testing.T) {
	body := `{"status":"pending"}`
	rules := []*models.AssertRule{{
		AssertType: models.AssertTypeJSONPath, SourceExpr: "status",
		Comparator: models.ComparatorEq, ExpectedValue: "done", IsEnabled: true,
	}}
	outcomes := Evaluate(rules, extract.Source{Body: &body})
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.Contains(t, outcomes[0].Message, "断言失败")
}

func TestEvaluate_TextContainsPasses(t *testing.T) {
	body := "request accepted for processing"
	rules := []*models.AssertRule{{
		AssertType: models.AssertTypeTextContains, Comparator: models.ComparatorContains,
		ExpectedValue: "accepted", IsEnabled: true,
	}}
	outcomes := Evaluate(rules, extract.Source{Body: &body})
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Passed)
}

func TestEvaluate_DisabledRuleSkipped(t *testing.T) {
	rules := []*models.AssertRule{{AssertType: models.AssertTypeStatusCode, IsEnabled: false}}
	outcomes := Evaluate(rules, extract.Source{})
	assert.Empty(t, outcomes)
}

func TestEvaluate_CustomMessageUsedOnFailure(t *testing.T) {
	code := 500
	rules := []*models.AssertRule{{
		AssertType: models.AssertTypeStatusCode, Comparator: models.ComparatorEq,
		ExpectedValue: float64(200), Message: "service must return 200", IsEnabled: true,
	}}
	outcomes := Evaluate(rules, extract.Source{StatusCode: &code})
	require.Len(t, outcomes, 1)
	assert.Equal(t, "service must return 200", outcomes[0].Message)
}

func TestEvaluate_NumericStringCoercionForEq(t *testing.T) {
	body := `{"code":"200"}`
	rules := []*models.AssertRule{{
		AssertType: models.AssertTypeJSONPath, SourceExpr: "code",
		Comparator: models.ComparatorEq, ExpectedValue: float64(200), IsEnabled: true,
	}}
	outcomes := Evaluate(rules, extract.Source{Body: &body})
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Passed)
}
