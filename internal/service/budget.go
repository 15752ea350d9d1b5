package service

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseBudget parses user budget input. Whitespace anywhere in the string
// is stripped (people write "1 500") and a decimal comma is accepted as a
// decimal point. The value must be positive and at most max.
func ParseBudget(input string, max float64) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrBudgetNotANumber
	}
	if value <= 0 {
		return 0, ErrBudgetNotPositive
	}
	if value > max {
		return 0, ErrBudgetTooLarge
	}
	return value, nil
}

// FormatBudget renders a budget without trailing zeros, so 1500.0 prints
// as "1500" and 99.50 as "99.5".
func FormatBudget(budget float64) string {
	return strconv.FormatFloat(budget, 'f', -1, 64)
}
