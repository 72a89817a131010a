package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredCascade(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "direct json",
			raw:  `{"is_valid": true}`,
			want: map[string]any{"is_valid": true},
		},
		{
			name: "fenced json",
			raw:  "Sure, here you go:\n```json\n{\"insights\": \"hold cash\"}\n```\nThanks",
			want: map[string]any{"insights": "hold cash"},
		},
		{
			name: "brace span",
			raw:  `The answer is {"score": 12} as requested.`,
			want: map[string]any{"score": float64(12)},
		},
		{
			name: "plain text",
			raw:  "markets look choppy",
			want: map[string]any{"analysis": "markets look choppy"},
		},
		{
			name: "empty",
			raw:  "",
			want: map[string]any{"analysis": ""},
		},
		{
			name: "top level array",
			raw:  `[1, 2]`,
			want: map[string]any{"analysis": `[1, 2]`},
		},
		{
			name: "broken fence falls through to analysis",
			raw:  "```json\n{not json}\n```",
			want: map[string]any{"analysis": "```json\n{not json}\n```"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Structured(tc.raw))
		})
	}
}

func TestStructuredNeverNil(t *testing.T) {
	for _, raw := range []string{"", "{", "}", "null", "{}{}", "```json```", "\x00\xff"} {
		assert.NotNil(t, Structured(raw), "raw %q", raw)
	}
}

func TestStructuredRoundTrip(t *testing.T) {
	m := map[string]any{
		"Symbol":        "AAPL",
		"Company":       "Apple Inc.",
		"Action":        "Buy",
		"Quantity":      10.5,
		"Reason":        "Strong cash flow",
		"Caution":       "High P/E",
		"NewsSentiment": "Positive",
		"Score":         float64(85),
	}
	encoded, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, m, Structured(string(encoded)))
}

func TestList(t *testing.T) {
	list, ok := List("```json\n[{\"Symbol\": \"MSFT\"}]\n```")
	require.True(t, ok)
	require.Len(t, list, 1)

	list, ok = List(`noise [{"Symbol": "AAPL"}, {"Symbol": "NVDA"}] trailing`)
	require.True(t, ok)
	assert.Len(t, list, 2)

	_, ok = List("no array here")
	assert.False(t, ok)
}

func TestAccessors(t *testing.T) {
	m := Structured(`{"validation": {"validation_result": {"is_valid": "yes", "confidence": 80,
		"concerns": ["volatility", 3], "primary_reasons": "fits budget"}}}`)
	v := Map(Map(m, "validation"), "validation_result")
	assert.True(t, Bool(v, "is_valid"))
	assert.Equal(t, "80", String(v, "confidence", "N/A"))
	assert.Equal(t, "N/A", String(v, "missing", "N/A"))
	assert.Equal(t, []string{"volatility", "3"}, Strings(v, "concerns", nil))
	assert.Equal(t, []string{"fits budget"}, Strings(v, "primary_reasons", nil))
	assert.Equal(t, []string{"none"}, Strings(v, "monitoring", []string{"none"}))
	assert.Empty(t, Map(v, "modifications"))
}
