// Package merge implements the deep-merge rule shared by variable layering
// and request-field layering: for every key present in the override, if
// both sides hold a map at that key the merge recurses, otherwise the
// override wins outright — including for lists, which are replaced rather
// than concatenated.
//
// This operates on dynval.Value trees rather than Go structs or
// map[string]interface{}, so dario.cat/mergo (reflection-based, used
// elsewhere in this module for layering config structs) does not apply
// here without first flattening to and from interface{} on every call;
// the merge is small enough that a direct implementation over the value
// type grounds it in the teacher's original deep-merge helper without that
// round trip.
package merge

import "github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"

// Maps deep-merges override onto base and returns a new map; both inputs
// are left untouched.
func Maps(base, override map[string]dynval.Value) map[string]dynval.Value {
	result := make(map[string]dynval.Value, len(base)+len(override))
	for k, v := range base {
		result[k] = v.Clone()
	}
	for k, v := range override {
		if existing, ok := result[k]; ok && existing.Kind() == dynval.KindMap && v.Kind() == dynval.KindMap {
			result[k] = dynval.Map(Maps(existing.Map(), v.Map()))
			continue
		}
		result[k] = v.Clone()
	}
	return result
}

// StringMaps is the map[string]string convenience form used for headers,
// query params and cookies, which never nest.
func StringMaps(base, override map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}

// Values deep-merges two arbitrary dynval.Values when both are maps;
// otherwise override wins, matching the Maps rule at the top level.
func Values(base, override dynval.Value) dynval.Value {
	if base.Kind() == dynval.KindMap && override.Kind() == dynval.KindMap {
		return dynval.Map(Maps(base.Map(), override.Map()))
	}
	return override.Clone()
}
