package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "us grouping", input: "1,234.56", want: "1234.56"},
		{name: "european grouping", input: "1.234,56", want: "1234.56"},
		{name: "currency symbol", input: "$49,500", want: "49500"},
		{name: "largest wins", input: "3 x 49500 = 148500", want: "148500"},
		{name: "trailing symbol", input: "Total 250,00 $", want: "250"},
		{name: "rounded to cents", input: "Cargo 10.456", want: "10.46"},
		{name: "noise above cap ignored", input: "Tel 5512345678 importe 99.90", want: "99.9"},
		{name: "repeated dots keep prefix", input: "1.234.567", want: "1.23"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAmount(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseAmountNoMatch(t *testing.T) {
	for _, input := range []string{"", "   ", "0", "0,00", "sin monto", ".,."} {
		_, ok := ParseAmount(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestParseAmountIsStateless(t *testing.T) {
	first, _ := ParseAmount("Renta 12000")
	second, _ := ParseAmount("Renta 12000")
	assert.True(t, first.Equal(second))
}

func TestLooksLikeAmount(t *testing.T) {
	assert.True(t, LooksLikeAmount(" $1,200.50 "))
	assert.True(t, LooksLikeAmount("300"))
	assert.False(t, LooksLikeAmount("Pago 300"))
}

func TestStripAmounts(t *testing.T) {
	assert.Equal(t, "Uber viaje", NormalizeSpaces(StripAmounts("Uber viaje $ 120.50")))
}
