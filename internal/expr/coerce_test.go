package expr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want float64
	}{
		{"number", Number(12.5), 12.5},
		{"numeric string", String("12.5"), 12.5},
		{"negative string", String("-3"), -3},
		{"garbage string", String("abc"), 0},
		{"empty string", String(""), 0},
		{"true", Bool(true), 1},
		{"false", Bool(false), 0},
		{"undefined", nil, 0},
		{"null", Null{}, 0},
		{"list", List{Number(1)}, 0},
		{"object", Object{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToNumber(tt.in))
		})
	}
}

func TestToNumberNeverNaN(t *testing.T) {
	assert.Equal(t, float64(0), ToNumber(Number(math.NaN())))
	assert.Equal(t, float64(0), ToNumber(Number(math.Inf(1))))
	assert.Equal(t, float64(0), ToNumber(String("NaN")))
	assert.Equal(t, float64(0), ToNumber(String("Inf")))
}

func TestToBool(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want bool
	}{
		{"undefined", nil, false},
		{"null", Null{}, false},
		{"false", Bool(false), false},
		{"zero", Number(0), false},
		{"empty string", String(""), false},
		{"true", Bool(true), true},
		{"nonzero", Number(-1), true},
		{"string", String("x"), true},
		{"empty list", List{}, true},
		{"empty object", Object{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToBool(tt.in))
		})
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "null", ToString(Null{}))
	assert.Equal(t, "hello", ToString(String("hello")))
	assert.Equal(t, "42", ToString(Number(42)))
	assert.Equal(t, "1.5", ToString(Number(1.5)))
	assert.Equal(t, "true", ToString(Bool(true)))
	assert.Equal(t, `["a"]`, ToString(List{String("a")}))
}
