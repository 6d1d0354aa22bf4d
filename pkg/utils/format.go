// Package utils provides shared helpers for formatting, dates and retries.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatIndianCurrency formats a number in Indian currency format (lakhs, crores).
func FormatIndianCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Format with 2 decimal places
	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := "₹" + formatIndianNumber(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]

	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatMoney formats an amount the way the position dashboard shows it:
// CR above a crore, Lac above a lakh, K above a thousand.
func FormatMoney(x float64) string {
	sign := ""
	if x < 0 {
		sign = "-"
	}
	x = math.Abs(x)

	switch {
	case x >= 1e7:
		return fmt.Sprintf("%s%.2f CR", sign, x/1e7)
	case x >= 1e5:
		return fmt.Sprintf("%s%.2f Lac", sign, x/1e5)
	case x >= 1e3:
		return fmt.Sprintf("%s%.2f K", sign, x/1e3)
	}
	return fmt.Sprintf("%s%.2f", sign, x)
}

// FormatPercent formats a percentage without sign.
func FormatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

// FormatQuantity formats a signed quantity with Indian digit grouping.
func FormatQuantity(qty int64) string {
	if qty < 0 {
		return "-" + formatIndianNumber(fmt.Sprintf("%d", -qty))
	}
	return formatIndianNumber(fmt.Sprintf("%d", qty))
}

// FormatPrice formats a price level with two decimals.
func FormatPrice(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
