package model

import "testing"

func TestParseCarrierKind(t *testing.T) {
	cases := []struct {
		api  string
		want CarrierKind
		ok   bool
	}{
		{"twilio", CarrierTwilio, true},
		{"thinq", CarrierThinQ, true},
		{"Twilio", "Twilio", false},
		{"twilio ", "twilio ", false},
		{"THINQ", "THINQ", false},
		{"bandwidth", "bandwidth", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseCarrierKind(tc.api)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseCarrierKind(%q) = (%q, %v), want (%q, %v)", tc.api, got, ok, tc.want, tc.ok)
		}
	}
}
