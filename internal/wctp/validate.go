package wctp

import (
	"strings"
	"unicode/utf8"
)

const (
	RecipientLength    = 10
	MaxMessageLength   = 1600
	MaxSenderIDLength  = 128
	MaxSecurityCodeLen = 16
)

// Validate checks a parsed submission field by field. The order is part of
// the contract: the first failing field decides the fault and later fields
// are not inspected.
func Validate(s Submission) *Fault {
	if missing(s.Recipient) || utf8.RuneCountInString(s.Recipient) != RecipientLength {
		return FaultInvalidRecipient
	}
	if missing(s.Message) || utf8.RuneCountInString(s.Message) > MaxMessageLength {
		return FaultMessageTooLong
	}
	if missing(s.SenderID) || utf8.RuneCountInString(s.SenderID) > MaxSenderIDLength {
		return FaultInvalidSenderID
	}
	if missing(s.SecurityCode) || utf8.RuneCountInString(s.SecurityCode) > MaxSecurityCodeLen {
		return FaultInvalidSecurity
	}
	return nil
}

func missing(v string) bool {
	return strings.TrimSpace(v) == ""
}
