package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone turns a WCTP recipientID (10-digit NANP) or a provisioned
// number into E.164.
func NormalizePhone(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case s == "":
		return s
	case strings.HasPrefix(s, "+"):
		return s
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case len(s) == 10:
		s = "+1" + s
	case len(s) == 11 && strings.HasPrefix(s, "1"):
		s = "+" + s
	}

	return s
}

// NationalNumber strips an E.164 NANP number down to its 10 digits; ThinQ
// addresses DIDs without a country code.
func NationalNumber(raw string) string {
	s := strings.TrimPrefix(NormalizePhone(raw), "+")
	if len(s) == 11 && strings.HasPrefix(s, "1") {
		return s[1:]
	}
	return s
}
