package utils

import (
	"strings" // String building

	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// USD formats a decimal dollar amount as a currency string, e.g.
// 10512.3 -> "$10,512.30". Negative amounts render as "-$1,234.56".
func USD(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2) // Two decimal places, no sign
	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]

	// Insert thousands separators into the whole part
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + b.String() + frac
}
