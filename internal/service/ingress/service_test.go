package ingress

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
	"github.com/jmehdipour/wctp-gateway/internal/wctp"
)

type fakeHosts struct {
	hosts   map[string]model.EnterpriseHost
	err     error
	lookups int
}

func (f *fakeHosts) GetBySenderID(_ context.Context, senderID string) (*model.EnterpriseHost, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	h, ok := f.hosts[senderID]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

type fakeRouter struct {
	fault *wctp.Fault
	calls []wctp.Submission
}

func (r *fakeRouter) Route(_ context.Context, _ model.EnterpriseHost, sub wctp.Submission) *wctp.Fault {
	r.calls = append(r.calls, sub)
	return r.fault
}

func doc(sender, code, recipient, message string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0"?>
<wctp-Operation wctpVersion="wctp-dtd-v1r1">
  <wctp-SubmitRequest>
    <wctp-SubmitHeader>
      <wctp-Originator senderID="%s" securityCode="%s"/>
      <wctp-Recipient recipientID="%s"/>
    </wctp-SubmitHeader>
    <wctp-Payload><wctp-Alphanumeric>%s</wctp-Alphanumeric></wctp-Payload>
  </wctp-SubmitRequest>
</wctp-Operation>`, sender, code, recipient, message))
}

func newFixture(t *testing.T) (*Service, *fakeHosts, *fakeRouter) {
	t.Helper()
	v, err := vault.New("ingress-test-key")
	if err != nil {
		t.Fatalf("vault.New() error: %v", err)
	}
	sealed, err := v.Encrypt("s3cret")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	hosts := &fakeHosts{hosts: map[string]model.EnterpriseHost{
		"acme":   {ID: 1, SenderID: "acme", SecurityCode: sealed},
		"broken": {ID: 2, SenderID: "broken", SecurityCode: "not-an-envelope"},
	}}
	router := &fakeRouter{}
	return New(hosts, v, router), hosts, router
}

func TestSubmit_Success(t *testing.T) {
	svc, _, router := newFixture(t)

	if f := svc.Submit(context.Background(), doc("acme", "s3cret", "5551234567", "disk full")); f != nil {
		t.Fatalf("expected success, got %v", f)
	}
	if len(router.calls) != 1 || router.calls[0].Message != "disk full" {
		t.Fatalf("expected one routed submission, got %+v", router.calls)
	}
}

func TestSubmit_Faults(t *testing.T) {
	cases := []struct {
		name string
		body []byte
		want *wctp.Fault
	}{
		{"malformed", []byte("<wctp-Operation><oops"), wctp.FaultInvalidXML},
		{"empty", nil, wctp.FaultInvalidXML},
		{"bad recipient", doc("acme", "s3cret", "555", "hi"), wctp.FaultInvalidRecipient},
		{"missing message", doc("acme", "s3cret", "5551234567", "  "), wctp.FaultMessageTooLong},
		{"missing sender", doc("", "s3cret", "5551234567", "hi"), wctp.FaultInvalidSenderID},
		{"long security code", doc("acme", "12345678901234567", "5551234567", "hi"), wctp.FaultInvalidSecurity},
		{"unknown sender", doc("nobody", "s3cret", "5551234567", "hi"), wctp.FaultUnknownSender},
		{"wrong code", doc("acme", "guess", "5551234567", "hi"), wctp.FaultSecurityMismatch},
		{"undecryptable code", doc("broken", "s3cret", "5551234567", "hi"), wctp.FaultSecurityDecrypt},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, router := newFixture(t)
			if f := svc.Submit(context.Background(), tc.body); f != tc.want {
				t.Fatalf("got %v, want %v", f, tc.want)
			}
			if len(router.calls) != 0 {
				t.Fatalf("rejected submission must not be routed")
			}
		})
	}
}

func TestSubmit_NoLookupBeforeValidation(t *testing.T) {
	svc, hosts, _ := newFixture(t)

	svc.Submit(context.Background(), []byte("not xml"))
	svc.Submit(context.Background(), doc("acme", "s3cret", "12", "hi"))
	if hosts.lookups != 0 {
		t.Fatalf("expected no host lookups, got %d", hosts.lookups)
	}
}

func TestSubmit_HostStoreError(t *testing.T) {
	svc, hosts, _ := newFixture(t)
	hosts.err = errors.New("db down")

	if f := svc.Submit(context.Background(), doc("acme", "s3cret", "5551234567", "hi")); f != wctp.FaultAuthUnavailable {
		t.Fatalf("got %v, want %v", f, wctp.FaultAuthUnavailable)
	}
}

func TestSubmit_RouterFaultPassesThrough(t *testing.T) {
	svc, _, router := newFixture(t)
	router.fault = wctp.FaultNoCarrier

	if f := svc.Submit(context.Background(), doc("acme", "s3cret", "5551234567", "hi")); f != wctp.FaultNoCarrier {
		t.Fatalf("got %v, want %v", f, wctp.FaultNoCarrier)
	}
}
