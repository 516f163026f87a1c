// Package render implements the {{name}} template substitution used to
// resolve URLs, headers, query params and body payloads against the
// merged variable context before a request is executed.
package render

import (
	"regexp"
	"strings"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// String renders a string against the variable map. When the entire
// trimmed string is a single placeholder and the name is bound, the
// substituted value's original type is preserved via Value; otherwise each
// occurrence is replaced by its canonical text form and the result is
// always a string Value. Unknown names are left as the literal "{{name}}".
func String(s string, vars map[string]dynval.Value) dynval.Value {
	if name, ok := wholePlaceholder(s); ok {
		if v, bound := vars[name]; bound {
			return v.Clone()
		}
		return dynval.String(s)
	}

	result := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		name := sub[1]
		if v, bound := vars[name]; bound {
			return v.Text()
		}
		return match
	})
	return dynval.String(result)
}

// wholePlaceholder reports whether s, once trimmed, is exactly one
// {{name}} occurrence, returning that name.
func wholePlaceholder(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	m := placeholder.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	if m[0] != trimmed {
		return "", false
	}
	return m[1], true
}

// Value renders an arbitrary dynval.Value recursively: strings are
// substituted, mappings and lists are rendered element-wise, everything
// else passes through unchanged. The renderer never errors; unbound names
// are left literally in place.
func Value(v dynval.Value, vars map[string]dynval.Value) dynval.Value {
	switch v.Kind() {
	case dynval.KindString:
		return String(v.Str(), vars)
	case dynval.KindList:
		items := v.List()
		out := make([]dynval.Value, len(items))
		for i, item := range items {
			out[i] = Value(item, vars)
		}
		return dynval.List(out)
	case dynval.KindMap:
		m := v.Map()
		out := make(map[string]dynval.Value, len(m))
		for k, item := range m {
			out[k] = Value(item, vars)
		}
		return dynval.Map(out)
	default:
		return v
	}
}

// StringMap renders every value of a map[string]string (headers, query
// params, cookies) against the variable context, returning the rendered
// strings.
func StringMap(m map[string]string, vars map[string]dynval.Value) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = String(v, vars).Text()
	}
	return out
}
