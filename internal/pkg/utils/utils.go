package utils

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNumber adds comma separators to a number.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var result strings.Builder
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	if neg {
		return "-" + result.String()
	}
	return result.String()
}

// FormatAmount renders a money value with comma separators and two decimals,
// followed by the currency when given.
func FormatAmount(v decimal.Decimal, currency string) string {
	fixed := v.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, _ := strconv.ParseInt(whole, 10, 64)

	out := FormatNumber(n) + "." + frac
	if v.IsNegative() {
		out = "-" + out
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}
