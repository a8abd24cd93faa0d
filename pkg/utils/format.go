package utils

import (
	"fmt"
	"strings"
)

// FormatIndianCurrency formats an amount with the rupee sign and Indian
// digit grouping (lakh/crore style: 12,34,56,789.00).
func FormatIndianCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := int64(amount)
	frac := int64((amount-float64(whole))*100 + 0.5)
	if frac >= 100 {
		whole++
		frac -= 100
	}

	grouped := groupIndian(whole)
	out := fmt.Sprintf("₹%s.%02d", grouped, frac)
	if negative {
		return "-" + out
	}
	return out
}

// groupIndian inserts commas after the last three digits and then every
// two digits.
func groupIndian(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	head := s[:len(s)-3]
	tail := s[len(s)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}

// FormatPercent formats a ratio as a signed percentage string.
func FormatPercent(value float64) string {
	return fmt.Sprintf("%+.2f%%", value)
}

// FormatQuantity renders a contract quantity with its lot count when the
// lot size is known.
func FormatQuantity(qty, lotSize int) string {
	if lotSize > 1 && qty%lotSize == 0 {
		return fmt.Sprintf("%d (%d lots)", qty, qty/lotSize)
	}
	return fmt.Sprintf("%d", qty)
}
