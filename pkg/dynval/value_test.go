package dynval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_PreservesIntVsFloat(t *testing.T) {
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(`{"count": 3, "ratio": 3.5}`), &decoded))

	v := FromAny(decoded)
	m := v.Map()
	assert.Equal(t, "int", m["count"].TypeName())
	assert.Equal(t, "float", m["ratio"].TypeName())
}

func TestValue_TextCoercion(t *testing.T) {
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "42", Int(42).Text())
	assert.Equal(t, "hello", String("hello").Text())
	assert.Equal(t, "", Null().Text())
}

func TestValue_EqualNumericStringCoercion(t *testing.T) {
	assert.True(t, String("200").Equal(Int(200)))
	assert.True(t, Int(200).Equal(String("200")))
	assert.False(t, String("abc").Equal(Int(200)))
}

func TestValue_Contains(t *testing.T) {
	assert.True(t, String("hello world").Contains(String("world")))
	assert.False(t, String("hello world").Contains(String("xyz")))

	list := List([]Value{String("a"), Int(1), Bool(true)})
	assert.True(t, list.Contains(Int(1)))
	assert.False(t, list.Contains(Int(2)))
}

func TestValue_CloneIsIndependent(t *testing.T) {
	original := Map(map[string]Value{"items": List([]Value{Int(1), Int(2)})})
	clone := original.Clone()

	clone.Map()["items"].List()[0] = Int(99)

	assert.Equal(t, int64(1), original.Map()["items"].List()[0].Int())
}

func TestValue_MarshalRoundTrip(t *testing.T) {
	original := Map(map[string]Value{
		"name":  String("staging"),
		"count": Int(3),
		"tags":  List([]Value{String("a"), String("b")}),
	})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.True(t, original.Equal(decoded))
}
