package canonicalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gowebpki/jcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_SortsKeys(t *testing.T) {
	input := map[string]any{
		"c": 3,
		"a": 1,
		"b": 2,
	}

	b, err := Canonical(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestCanonical_SortsNestedKeys(t *testing.T) {
	input := map[string]any{
		"z": map[string]any{
			"y": "foo",
			"x": "bar",
		},
		"a": []any{3, 1, 2},
	}

	b, err := Canonical(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[3,1,2],"z":{"x":"bar","y":"foo"}}`, string(b))
}

func TestCanonical_NoHTMLEscaping(t *testing.T) {
	input := map[string]string{
		"html": "<script>alert('x')</script> &",
	}

	b, err := Canonical(input)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<script>alert('x')</script> &"}`, string(b))
}

func TestCanonical_NumberPassthrough(t *testing.T) {
	input := map[string]any{
		"num": json.Number("123.456"),
	}

	b, err := Canonical(input)
	require.NoError(t, err)
	assert.Equal(t, `{"num":123.456}`, string(b))
}

func TestCanonicalHash_InvariantToFieldOrder(t *testing.T) {
	// Same envelope expressed as a map and as a struct with reversed
	// field order must fingerprint identically.
	v1 := map[string]any{"model": "gpt", "total_tokens": 42}

	type rec struct {
		TotalTokens int    `json:"total_tokens"`
		Model       string `json:"model"`
	}
	v2 := rec{TotalTokens: 42, Model: "gpt"}

	h1, err := CanonicalHash(v1)
	require.NoError(t, err)
	h2, err := CanonicalHash(v2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestCanonicalHash_StableAcrossCalls(t *testing.T) {
	v := map[string]any{"trace_id": "t-1", "skill": "review", "iteration_index": 3}

	h1, err := CanonicalHash(v)
	require.NoError(t, err)
	h2, err := CanonicalHash(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

// The hand encoder agrees with RFC 8785 (gowebpki/jcs) on the payload
// shapes that actually occur in event envelopes: string and integer
// fields, nested objects, arrays. (Exotic float formatting can
// legitimately differ and is excluded from envelope fields.)
func TestCanonical_AgreesWithRFC8785(t *testing.T) {
	cases := []string{
		`{"b":2,"a":1}`,
		`{"z":{"y":"foo","x":"bar"},"a":[1,2,3]}`,
		`{"trace_id":"abc","total_tokens":120,"model":"claude","nested":{"k":null,"b":true}}`,
		`{"":"empty key","unicode":"こんにちは"}`,
	}

	for _, raw := range cases {
		var v any
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&v))

		ours, err := Canonical(v)
		require.NoError(t, err)

		theirs, err := jcs.Transform([]byte(raw))
		require.NoError(t, err)

		assert.Equal(t, string(theirs), string(ours), "input %s", raw)
	}
}

func TestCanonicalString_Empty(t *testing.T) {
	s, err := CanonicalString(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "{}", s)
}
