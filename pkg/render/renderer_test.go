package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/dynval"
)

func TestString_WholePlaceholderPreservesType(t *testing.T) {
	vars := map[string]dynval.Value{"count": dynval.Int(42)}
	result := String("{{count}}", vars)
	assert.Equal(t, "int", result.TypeName())
	assert.Equal(t, int64(42), result.Int())
}

func TestString_PartialPlaceholderCoercesToText(t *testing.T) {
	vars := map[string]dynval.Value{"id": dynval.Int(7)}
	result := String("/users/{{id}}/profile", vars)
	assert.Equal(t, "str", result.TypeName())
	assert.Equal(t, "/users/7/profile", result.Str())
}

func TestString_UnboundNameLeftLiteral(t *testing.T) {
	result := String("{{missing}}", map[string]dynval.Value{})
	assert.Equal(t, "{{missing}}", result.Str())
}

func TestString_TrimsWhitespaceInsideBraces(t *testing.T) {
	vars := map[string]dynval.Value{"name": dynval.String("alice")}
	result := String("{{ name }}", vars)
	assert.Equal(t, "alice", result.Str())
}

func TestString_WholePlaceholderPreservesTypeWithSurroundingWhitespace(t *testing.T) {
	vars := map[string]dynval.Value{"uid": dynval.Int(7)}
	result := String(" {{uid}} ", vars)
	assert.Equal(t, "int", result.TypeName())
	assert.Equal(t, int64(7), result.Int())
}

func TestValue_RendersNestedMapsAndLists(t *testing.T) {
	vars := map[string]dynval.Value{"token": dynval.String("abc123")}
	input := dynval.Map(map[string]dynval.Value{
		"auth": dynval.Map(map[string]dynval.Value{
			"bearer": dynval.String("Bearer {{token}}"),
		}),
		"tags": dynval.List([]dynval.Value{dynval.String("{{token}}"), dynval.Int(1)}),
	})

	result := Value(input, vars)
	assert.Equal(t, "Bearer abc123", result.Map()["auth"].Map()["bearer"].Str())
	assert.Equal(t, "abc123", result.Map()["tags"].List()[0].Str())
	assert.Equal(t, int64(1), result.Map()["tags"].List()[1].Int())
}
