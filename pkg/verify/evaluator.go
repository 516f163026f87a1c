// Package verify implements the assertion evaluator (C5): each AssertRule
// resolves an actual value from the execution result, then compares it
// against the rule's expected value using the configured comparator.
package verify

import (
	"fmt"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/extract"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// Outcome is the result of evaluating one AssertRule.
type Outcome struct {
	Rule    *models.AssertRule
	Passed  bool
	Actual  dynval.Value
	Message string
}

// Evaluate runs every enabled rule against src and returns one Outcome per
// rule, in the order given.
func Evaluate(rules []*models.AssertRule, src extract.Source) []Outcome {
	outcomes := make([]Outcome, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsEnabled {
			continue
		}
		outcomes = append(outcomes, evaluateOne(rule, src))
	}
	return outcomes
}

func evaluateOne(rule *models.AssertRule, src extract.Source) Outcome {
	actual, found, err := resolveActual(rule, src)
	if err != nil {
		return Outcome{Rule: rule, Passed: false, Message: err.Error()}
	}
	if !found {
		return Outcome{Rule: rule, Passed: false, Message: failureMessage(rule, "value not found")}
	}

	expected := dynval.FromAny(rule.ExpectedValue)
	passed := compare(rule.Comparator, actual, expected)

	msg := ""
	if !passed {
		msg = failureMessage(rule, fmt.Sprintf("expected %s %s %v, got %v", describe(rule), rule.Comparator, expected.ToAny(), actual.ToAny()))
	}
	return Outcome{Rule: rule, Passed: passed, Actual: actual, Message: msg}
}

func resolveActual(rule *models.AssertRule, src extract.Source) (dynval.Value, bool, error) {
	switch rule.AssertType {
	case models.AssertTypeStatusCode:
		if src.StatusCode == nil {
			return dynval.Null(), false, nil
		}
		return dynval.Int(int64(*src.StatusCode)), true, nil

	case models.AssertTypeJSONPath:
		jsonRule := &models.ExtractRule{SourceType: models.SourceTypeResponseJSON, SourceExpr: rule.SourceExpr}
		return extract.Extract(jsonRule, src)

	case models.AssertTypeTextContains:
		if src.Body == nil {
			return dynval.Null(), false, nil
		}
		return dynval.String(*src.Body), true, nil

	default:
		return dynval.Null(), false, &UnknownAssertTypeError{AssertType: rule.AssertType}
	}
}

func compare(comparator string, actual, expected dynval.Value) bool {
	switch comparator {
	case models.ComparatorEq:
		return actual.Equal(expected)
	case models.ComparatorNe:
		return !actual.Equal(expected)
	case models.ComparatorContains:
		return actual.Contains(expected)
	case models.ComparatorNotContains:
		return !actual.Contains(expected)
	default:
		return false
	}
}

func describe(rule *models.AssertRule) string {
	if rule.SourceExpr != "" {
		return rule.AssertType + " " + rule.SourceExpr
	}
	return rule.AssertType
}

func failureMessage(rule *models.AssertRule, detail string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return "断言失败: " + detail
}

// UnknownAssertTypeError reports a rule configured with an assert_type the
// evaluator does not recognize.
type UnknownAssertTypeError struct {
	AssertType string
}

func (e *UnknownAssertTypeError) Error() string {
	return "unknown assert_type: " + e.AssertType
}
