package wctp

import "fmt"

// Fault is a protocol-level rejection returned to the submitting host.
// It is rendered as a wctp-Failure and never persisted.
type Fault struct {
	Code string
	Text string
	Desc string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("wctp fault %s: %s (%s)", f.Code, f.Text, f.Desc)
}

func newFault(code, text, desc string) *Fault {
	return &Fault{Code: code, Text: text, Desc: desc}
}

// Faults emitted by the ingress. Codes and texts are part of the wire
// contract with enterprise hosts.
var (
	FaultInvalidXML = newFault("300", "Invalid XML", "Unable to parse the WCTP submission")

	FaultInvalidRecipient = newFault("403", "Invalid recipientID", "The recipientID is invalid")
	FaultMessageTooLong   = newFault("411", "Message exceeds allowable length", "Message exceeds allowable message length of 1600")
	FaultInvalidSenderID  = newFault("401", "Invalid senderID", "The senderID is invalid")
	FaultInvalidSecurity  = newFault("402", "Invalid security code", "The security code for this senderID is invalid")

	FaultUnknownSender    = newFault("401", "Invalid senderID", "senderID does not live on this system")
	FaultSecurityMismatch = newFault("402", "Invalid securityCode", "securityCodes does not match")
	FaultSecurityDecrypt  = newFault("402", "Invalid securityCode", "Unable to decrypt securityCode")
	FaultAuthUnavailable  = newFault("604", "Internal Server Error", "Unable to authenticate senderID")

	FaultNoCarrier          = newFault("606", "Service Unavailable", "No upstream carriers are enabled")
	FaultCarrierUnavailable = newFault("604", "Internal Server Error", "Unable to select an upstream carrier")
	FaultCarrierAPI         = newFault("604", "Internal Server Error", "This carrier API is not yet implemented")
	FaultEnqueue            = newFault("604", "Internal Server Error", "Unable to queue message for delivery")

	FaultRateLimited = newFault("606", "Service Unavailable", "Too many submissions, retry later")
)

const (
	SuccessCode = "200"
	SuccessText = "Message queued for delivery"
)
