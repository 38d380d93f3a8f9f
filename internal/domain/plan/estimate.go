package plan

import (
	"strconv"
	"unicode"
)

// ParseEstimatedWeeks extracts the leading integer from free-form estimate
// text such as "3 weeks" or " 2-3 weeks". Leading whitespace and a single
// sign are allowed. Text without a leading number, a zero value, and values
// that overflow int32 all yield nil; no error is ever reported.
func ParseEstimatedWeeks(s string) *int {
	i := 0
	for i < len(s) && unicode.IsSpace(rune(s[i])) {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return nil
	}

	n, err := strconv.ParseInt(s[start:i], 10, 32)
	if err != nil || n == 0 {
		return nil
	}
	w := int(n)
	return &w
}
