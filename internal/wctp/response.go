package wctp

import (
	"bytes"
	"encoding/xml"
)

type responseOperation struct {
	XMLName      xml.Name     `xml:"wctp-Operation"`
	Version      string       `xml:"wctpVersion,attr"`
	Confirmation confirmation `xml:"wctp-Confirmation"`
}

type confirmation struct {
	Success *success `xml:"wctp-Success,omitempty"`
	Failure *failure `xml:"wctp-Failure,omitempty"`
}

type success struct {
	Code string `xml:"successCode,attr"`
	Text string `xml:"successText,attr"`
}

type failure struct {
	Code string `xml:"errorCode,attr"`
	Text string `xml:"errorText,attr"`
	Desc string `xml:",chardata"`
}

// RenderSuccess builds the wctp-Confirmation/wctp-Success envelope.
func RenderSuccess(code, text string) []byte {
	return render(confirmation{Success: &success{Code: code, Text: text}})
}

// RenderFault builds the wctp-Confirmation/wctp-Failure envelope.
func RenderFault(f *Fault) []byte {
	return render(confirmation{Failure: &failure{Code: f.Code, Text: f.Text, Desc: f.Desc}})
}

func render(c confirmation) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	// Marshal cannot fail for these fixed string-only shapes.
	b, _ := xml.Marshal(responseOperation{Version: Version, Confirmation: c})
	buf.Write(b)
	buf.WriteByte('\n')
	return buf.Bytes()
}
