package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExpr(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"1+2", 3},
		{"2*3+4", 10},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10/4", 2.5},
		{"10%3", 1},
		{"2^10", 1024},
		{"2^3^2", 512}, // right associative
		{"-5+3", -2},
		{"-(2+3)", -5},
		{"  1 +  2 ", 3},
		{"3.5*2", 7},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := evalExpr(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEvalExprErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"1/0",
		"5%0",
		"(1+2",
		"1+",
		"two plus two",
		"1 2",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := evalExpr(expr)
			assert.Error(t, err)
		})
	}
}

func TestFormatCalcResult(t *testing.T) {
	assert.Equal(t, "3", formatCalcResult(3.0))
	assert.Equal(t, "2.5", formatCalcResult(2.5))
	assert.Equal(t, "-2", formatCalcResult(-2.0))
	assert.Equal(t, "0.333333", formatCalcResult(1.0/3.0))
}
