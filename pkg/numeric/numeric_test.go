package numeric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToFloat(t *testing.T) {
	d := decimal.RequireFromString("187.25")
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"thousands separator", "1,234.50", 1234.50},
		{"currency sign", "$ 99.10", 99.10},
		{"currency sign no space", "$99.10", 99.10},
		{"padded string", "  42 ", 42},
		{"garbage", "n/a", 0},
		{"empty", "", 0},
		{"int", 7, 7},
		{"int64", int64(12), 12},
		{"uint8", uint8(3), 3},
		{"float32", float32(1.5), 1.5},
		{"decimal", d, 187.25},
		{"decimal pointer", &d, 187.25},
		{"nil decimal pointer", (*decimal.Decimal)(nil), 0},
		{"json number", json.Number("3.25"), 3.25},
		{"bool", true, 0},
		{"slice", []int{1}, 0},
		{"nan", math.NaN(), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ToFloat(tc.in), 1e-9)
		})
	}
}

func TestSafeOp(t *testing.T) {
	assert.Equal(t, 0.0, SafeOp(10, 0, Divide))
	assert.Equal(t, 0.0, SafeOp("5", "0.00", Divide))
	assert.Equal(t, 0.0, SafeOp(nil, nil, Divide))
	assert.InDelta(t, 2.5, SafeOp("5", 2, Divide), 1e-9)
	assert.InDelta(t, 1000.0, SafeOp("5", decimal.NewFromInt(200), Multiply), 1e-9)
	assert.InDelta(t, 3.5, SafeOp(1.5, "2", Add), 1e-9)
	assert.InDelta(t, -0.5, SafeOp(1.5, "2", Subtract), 1e-9)
	assert.Equal(t, 0.0, SafeOp(1, 2, Op("modulo")))
}

func TestFloorTo(t *testing.T) {
	assert.Equal(t, 5.0, FloorTo(1000.0/200.0, 2))
	assert.Equal(t, 3.33, FloorTo(10.0/3.0, 2))
	assert.Equal(t, 6.66, FloorTo(6.669, 2))
	for _, v := range []float64{0.29, 0.57, 1.13, 3.33, 12.07} {
		assert.Equal(t, v, FloorTo(v, 2), "value %v", v)
	}
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "1234.57", Decimal("1,234.567").StringFixed(2))
}

func TestParseReportsUsability(t *testing.T) {
	for _, v := range []any{85, 85.5, "85", " $1,000 ", json.Number("3")} {
		_, ok := Parse(v)
		assert.True(t, ok, "%v", v)
	}
	for _, v := range []any{nil, "high", "", true, []int{1}, "NaN", (*decimal.Decimal)(nil)} {
		f, ok := Parse(v)
		assert.False(t, ok, "%v", v)
		assert.Equal(t, 0.0, f)
	}
}
