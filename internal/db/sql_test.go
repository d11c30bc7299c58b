package db

import "testing"

func TestNewSQLConnection_RejectsBadInput(t *testing.T) {
	if _, err := NewSQLConnection("oracle", "dsn", SQLOpts{}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := NewSQLConnection("mysql", "", SQLOpts{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
