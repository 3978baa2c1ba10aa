package telephony

import "regexp"

// e164Pattern matches international E.164 numbers: a plus sign, a non-zero
// leading digit, and at most 15 digits total.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidNumber reports whether s is an E.164-formatted phone number.
func ValidNumber(s string) bool {
	return e164Pattern.MatchString(s)
}
