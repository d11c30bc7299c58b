package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"5551234567":     "+15551234567",
		"(555) 123-4567": "+15551234567",
		"15551234567":    "+15551234567",
		"+15551234567":   "+15551234567",
		"0044207946000":  "+44207946000",
		"":               "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNationalNumber(t *testing.T) {
	if got := NationalNumber("+15551234567"); got != "5551234567" {
		t.Fatalf("expected 5551234567, got %q", got)
	}
	if got := NationalNumber("5551234567"); got != "5551234567" {
		t.Fatalf("expected 5551234567, got %q", got)
	}
}

func TestNewIDIsULID(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("expected 26-char ULIDs, got %q %q", a, b)
	}
	if a == b {
		t.Fatalf("expected distinct ids")
	}
}
