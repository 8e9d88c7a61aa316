package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUSD(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"10.5", "$10.50"},
		{"999.99", "$999.99"},
		{"1000", "$1,000.00"},
		{"10512.3", "$10,512.30"},
		{"1234567.89", "$1,234,567.89"},
		{"-1234.56", "-$1,234.56"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, USD(d), "USD(%s)", tc.in)
	}
}
