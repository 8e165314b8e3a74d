package report

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseCompensation extracts the numeric value from a compensation string such
// as "R$200,000", "$1.2M" or "150K". Sentinels and blanks are rejected.
func ParseCompensation(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' })
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1_000
		s = s[:len(s)-1]
	case "M":
		multiplier = 1_000_000
		s = s[:len(s)-1]
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil || val < 0 {
		return 0, false
	}
	return val * multiplier, true
}

// CurrencyPrefix returns the symbol in front of the first digit ("R$" for "R$200,000")
func CurrencyPrefix(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsDigit)
	if i <= 0 {
		return ""
	}
	return strings.TrimSpace(s[:i])
}

// ParseYears returns the first whole number in a free-form years field ("5-7 yrs" is 5)
func ParseYears(s string) (int, bool) {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
