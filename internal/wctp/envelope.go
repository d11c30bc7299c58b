// Package wctp implements the subset of the Wireless Communications
// Transfer Protocol used by enterprise hosts to submit messages.
package wctp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// Version is echoed on every response envelope.
const Version = "wctp-dtd-v1r1"

// Submission is a parsed wctp-SubmitRequest.
type Submission struct {
	Recipient    string
	Message      string
	SenderID     string
	SecurityCode string
}

type operation struct {
	XMLName xml.Name      `xml:"wctp-Operation"`
	Submit  submitRequest `xml:"wctp-SubmitRequest"`
}

type submitRequest struct {
	Header  submitHeader `xml:"wctp-SubmitHeader"`
	Payload payload      `xml:"wctp-Payload"`
}

type submitHeader struct {
	Originator struct {
		SenderID     string `xml:"senderID,attr"`
		SecurityCode string `xml:"securityCode,attr"`
	} `xml:"wctp-Originator"`
	Recipient struct {
		RecipientID string `xml:"recipientID,attr"`
	} `xml:"wctp-Recipient"`
}

type payload struct {
	Alphanumeric string `xml:"wctp-Alphanumeric"`
}

// ParseSubmission extracts the four submission fields from a
// wctp-Operation document. Absent elements yield empty fields; only an
// unreadable document is an error.
func ParseSubmission(body []byte) (Submission, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Submission{}, fmt.Errorf("wctp: empty document")
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel

	var op operation
	if err := dec.Decode(&op); err != nil {
		if err == io.EOF {
			return Submission{}, fmt.Errorf("wctp: empty document")
		}
		return Submission{}, fmt.Errorf("wctp: parse envelope: %w", err)
	}

	return Submission{
		Recipient:    op.Submit.Header.Recipient.RecipientID,
		Message:      op.Submit.Payload.Alphanumeric,
		SenderID:     op.Submit.Header.Originator.SenderID,
		SecurityCode: op.Submit.Header.Originator.SecurityCode,
	}, nil
}
