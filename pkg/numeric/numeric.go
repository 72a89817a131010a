// Package numeric converts the mixed numeric representations that arrive from
// LLM output, quote providers and the database into float64 values.
// Every function here is total: bad input yields 0, never a panic or error.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Op string

const (
	Multiply Op = "multiply"
	Divide   Op = "divide"
	Add      Op = "add"
	Subtract Op = "subtract"
)

// ToFloat converts decimals, integers, floats and numeric strings to float64.
// Thousands separators and a leading currency sign are stripped from strings.
func ToFloat(v any) float64 {
	f, _ := Parse(v)
	return f
}

// Parse is ToFloat that also reports whether v held a usable number.
func Parse(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case decimal.Decimal:
		f = n.InexactFloat64()
	case *decimal.Decimal:
		if n == nil {
			return 0, false
		}
		f = n.InexactFloat64()
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseString(n)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SafeOp coerces both operands with ToFloat and applies op.
// Division by a zero divisor and unknown operations return 0.
func SafeOp(a, b any, op Op) float64 {
	x, y := ToFloat(a), ToFloat(b)
	var r float64
	switch op {
	case Multiply:
		r = x * y
	case Divide:
		if y == 0 {
			return 0
		}
		r = x / y
	case Add:
		r = x + y
	case Subtract:
		r = x - y
	default:
		return 0
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// floorEpsilon absorbs binary representation error so that values already at
// the requested precision (0.29 stored as 0.28999...) are not truncated again.
const floorEpsilon = 1e-9

// FloorTo truncates v toward negative infinity at the given number of decimal places.
func FloorTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Floor(v*scale+floorEpsilon) / scale
}

// Decimal returns v as a fixed-point decimal rounded to cents.
func Decimal(v any) decimal.Decimal {
	return decimal.NewFromFloat(ToFloat(v)).Round(2)
}
