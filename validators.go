package phoneauth

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,150}$`)
	phoneRegex    = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// IsValidEmail reports whether s is an RFC-shaped email address.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsValidUsername reports whether s satisfies the username policy:
// 150 characters or fewer, letters, digits and ./-/_ only.
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidPhone reports whether s parses as an international phone number
// (E.164: leading +, then 7-15 digits) after separator stripping.
func IsValidPhone(s string) bool {
	return phoneRegex.MatchString(NormalizePhone(s))
}

// NormalizePhone strips spaces, dashes, dots and parentheses so that
// "+1 (555) 123-4567" and "+15551234567" share one storage key.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// NormalizeEmail lowercases an address; email lookup is case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
