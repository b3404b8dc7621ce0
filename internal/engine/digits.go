package engine

import "strings"

// firstDigitRun returns the first contiguous run of ASCII digits in s,
// or "" when s contains none.
func firstDigitRun(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

// spaceFirstDigitRun rewrites the first digit run in s by inserting a
// single space between each digit, so "ticket 12345" becomes
// "ticket 1 2 3 4 5". Later runs are left unchanged.
func spaceFirstDigitRun(s string) string {
	runStart := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			return s[:runStart] + spaceOut(s[runStart:i]) + s[i:]
		}
	}
	if runStart >= 0 {
		return s[:runStart] + spaceOut(s[runStart:])
	}
	return s
}

func spaceOut(digits string) string {
	if len(digits) < 2 {
		return digits
	}
	var b strings.Builder
	b.Grow(len(digits)*2 - 1)
	for i := 0; i < len(digits); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}
