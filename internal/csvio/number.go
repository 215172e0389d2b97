package csvio

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// parseNumber strips quotes, whitespace and thousands separators, then reads
// the longest numeric prefix. Anything unreadable is 0.
func parseNumber(value string) float64 {
	if value == "" {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == '"' || r == '\'' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)

	prefix := numericPrefix(cleaned)
	if prefix == "" {
		return 0
	}
	n, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	return n
}

// numericPrefix returns the leading [sign]digits[.digits][e[sign]digits]
// portion of s, or "" when s does not start with a number.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	digits := i - intStart
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		fraction := j - i - 1
		if digits > 0 || fraction > 0 {
			digits += fraction
			i = j
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			i = j
		}
	}
	return s[:i]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
