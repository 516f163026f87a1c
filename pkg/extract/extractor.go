// Package extract implements the variable extractor (C4): given an
// executed request's response and an ExtractRule, it navigates to the
// configured source and produces a typed value plus the value_type string
// persisted alongside every extracted RunVariable.
package extract

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/httpexec"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// Source bundles the pieces of an executed request an ExtractRule can read
// from.
type Source struct {
	StatusCode *int
	Headers    map[string]any
	Body       *string
	Variables  map[string]dynval.Value
}

// FromResult adapts an httpexec.Result into a Source.
func FromResult(result *httpexec.Result, variables map[string]dynval.Value) Source {
	return Source{
		StatusCode: result.ResponseStatusCode,
		Headers:    result.ResponseHeaders,
		Body:       result.ResponseBody,
		Variables:  variables,
	}
}

// Extract applies rule against src, returning the extracted value, whether
// it was found, and an error only for rule misconfiguration (an unknown
// source_type or an invalid regex). A not-found result is reported through the bool, never an
// error, since missing-but-optional is the common case.
func Extract(rule *models.ExtractRule, src Source) (dynval.Value, bool, error) {
	switch rule.SourceType {
	case models.SourceTypeResponseStatus:
		return extractStatus(src)
	case models.SourceTypeResponseHeader:
		return extractHeader(rule.SourceExpr, src)
	case models.SourceTypeResponseCookie:
		return extractCookie(rule.SourceExpr, src)
	case models.SourceTypeResponseJSON:
		return extractJSONPath(rule.SourceExpr, src)
	case models.SourceTypeResponseTextRegex:
		return extractTextRegex(rule.SourceExpr, src)
	case models.SourceTypeSession:
		return extractSession(rule, src)
	default:
		return dynval.Null(), false, &UnknownSourceTypeError{SourceType: rule.SourceType}
	}
}

// UnknownSourceTypeError reports a rule configured with a source_type the
// extractor does not recognize.
type UnknownSourceTypeError struct {
	SourceType string
}

func (e *UnknownSourceTypeError) Error() string {
	return "unknown extract source_type: " + e.SourceType
}

func extractStatus(src Source) (dynval.Value, bool, error) {
	if src.StatusCode == nil {
		return dynval.Null(), false, nil
	}
	return dynval.Int(int64(*src.StatusCode)), true, nil
}

func extractHeader(name string, src Source) (dynval.Value, bool, error) {
	for k, v := range src.Headers {
		if strings.EqualFold(k, name) {
			return dynval.FromAny(v), true, nil
		}
	}
	return dynval.Null(), false, nil
}

// extractCookie reads a named cookie out of the response's Set-Cookie
// header(s), which may be stored as a single string or a list of strings
// when the response set more than one cookie.
func extractCookie(name string, src Source) (dynval.Value, bool, error) {
	var rawLines []string
	for k, v := range src.Headers {
		if !strings.EqualFold(k, "Set-Cookie") {
			continue
		}
		switch t := v.(type) {
		case string:
			rawLines = append(rawLines, t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					rawLines = append(rawLines, s)
				}
			}
		}
	}

	header := http.Header{}
	for _, line := range rawLines {
		header.Add("Set-Cookie", line)
	}
	resp := &http.Response{Header: header}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return dynval.String(cookie.Value), true, nil
		}
	}
	return dynval.Null(), false, nil
}

func extractTextRegex(pattern string, src Source) (dynval.Value, bool, error) {
	if src.Body == nil {
		return dynval.Null(), false, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return dynval.Null(), false, &InvalidRegexError{Pattern: pattern, Cause: err}
	}
	match := re.FindStringSubmatch(*src.Body)
	if match == nil {
		return dynval.Null(), false, nil
	}
	if len(match) > 1 {
		return dynval.String(match[1]), true, nil
	}
	return dynval.String(match[0]), true, nil
}

// InvalidRegexError reports an AssertRule/ExtractRule whose source_expr
// fails to compile as a regexp.
type InvalidRegexError struct {
	Pattern string
	Cause   error
}

func (e *InvalidRegexError) Error() string {
	return "invalid regex \"" + e.Pattern + "\": " + e.Cause.Error()
}

func (e *InvalidRegexError) Unwrap() error { return e.Cause }

// extractSession reads a runtime variable by source_expr, falling back to
// var_name when the rule sets no expression.
func extractSession(rule *models.ExtractRule, src Source) (dynval.Value, bool, error) {
	key := rule.SourceExpr
	if key == "" {
		key = rule.VarName
	}
	v, ok := src.Variables[key]
	if !ok {
		return dynval.Null(), false, nil
	}
	return v.Clone(), true, nil
}

// extractJSONPath navigates a response body using the path grammar: an
// optional leading "$." / "$" / "/", dot-separated segments, and "[N]"
// bracket indices for list access. Bracket content that is not a plain
// non-negative integer is treated as not-found rather than an error.
func extractJSONPath(expr string, src Source) (dynval.Value, bool, error) {
	if src.Body == nil {
		return dynval.Null(), false, nil
	}
	var root dynval.Value
	if err := root.UnmarshalJSON([]byte(*src.Body)); err != nil {
		return dynval.Null(), false, nil
	}
	return navigateJSONPath(root, expr)
}

func navigateJSONPath(root dynval.Value, expr string) (dynval.Value, bool, error) {
	expr = strings.TrimPrefix(expr, "$.")
	expr = strings.TrimPrefix(expr, "$")
	expr = strings.TrimPrefix(expr, "/")
	if expr == "" {
		return root, true, nil
	}

	current := root
	for _, seg := range strings.Split(expr, ".") {
		if seg == "" {
			continue
		}
		name, indices, ok := parseSegment(seg)
		if !ok {
			return dynval.Null(), false, nil
		}
		if name != "" {
			if current.Kind() != dynval.KindMap {
				return dynval.Null(), false, nil
			}
			next, found := current.Map()[name]
			if !found {
				return dynval.Null(), false, nil
			}
			current = next
		}
		for _, idx := range indices {
			if current.Kind() != dynval.KindList {
				return dynval.Null(), false, nil
			}
			list := current.List()
			if idx < 0 || idx >= len(list) {
				return dynval.Null(), false, nil
			}
			current = list[idx]
		}
	}
	return current, true, nil
}

// parseSegment splits "name[0][1]" into its field name and ordered bracket
// indices. A bracket whose content is not a plain integer yields ok=false.
func parseSegment(seg string) (name string, indices []int, ok bool) {
	bracketStart := strings.IndexByte(seg, '[')
	if bracketStart < 0 {
		return seg, nil, true
	}
	name = seg[:bracketStart]
	rest := seg[bracketStart:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		indices = append(indices, n)
		rest = rest[end+1:]
	}
	return name, indices, true
}
