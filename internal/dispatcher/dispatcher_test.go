package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/wctp"
)

type fakeDirectory struct {
	first *model.Carrier
	err   error
}

func (f *fakeDirectory) FirstEnabled(context.Context) (*model.Carrier, error) { return f.first, f.err }
func (f *fakeDirectory) GetEnabled(context.Context, int64) (*model.Carrier, error) {
	return f.first, f.err
}

type sendCall struct {
	host      model.EnterpriseHost
	carrier   model.Carrier
	recipient string
	body      string
}

type fakeQueue struct {
	calls []sendCall
	err   error
}

func (q *fakeQueue) EnqueueSend(_ context.Context, host model.EnterpriseHost, c model.Carrier, recipient, body string) error {
	q.calls = append(q.calls, sendCall{host, c, recipient, body})
	return q.err
}

var (
	testHost = model.EnterpriseHost{ID: 9, SenderID: "acme"}
	testSub  = wctp.Submission{Recipient: "5551234567", Message: "hello", SenderID: "acme", SecurityCode: "s3cret"}
)

func TestRoute_EnqueuesOnFirstEnabledCarrier(t *testing.T) {
	q := &fakeQueue{}
	r := NewRouter(&fakeDirectory{first: &model.Carrier{ID: 3, API: "thinq", Enabled: true}}, q)

	if f := r.Route(context.Background(), testHost, testSub); f != nil {
		t.Fatalf("expected success, got %v", f)
	}
	if len(q.calls) != 1 {
		t.Fatalf("expected one enqueue, got %d", len(q.calls))
	}
	got := q.calls[0]
	if got.carrier.ID != 3 || got.host.ID != 9 || got.recipient != "5551234567" || got.body != "hello" {
		t.Fatalf("unexpected enqueue %+v", got)
	}
}

func TestRoute_Faults(t *testing.T) {
	cases := []struct {
		name     string
		dir      *fakeDirectory
		queueErr error
		want     *wctp.Fault
		enqueued int
	}{
		{"no carriers", &fakeDirectory{}, nil, wctp.FaultNoCarrier, 0},
		{"directory error", &fakeDirectory{err: errors.New("db down")}, nil, wctp.FaultCarrierUnavailable, 0},
		{"unknown api", &fakeDirectory{first: &model.Carrier{ID: 1, API: "bandwidth"}}, nil, wctp.FaultCarrierAPI, 0},
		{"api is matched exactly", &fakeDirectory{first: &model.Carrier{ID: 1, API: "Twilio "}}, nil, wctp.FaultCarrierAPI, 0},
		{"enqueue failure", &fakeDirectory{first: &model.Carrier{ID: 1, API: "twilio"}}, errors.New("kafka down"), wctp.FaultEnqueue, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQueue{err: tc.queueErr}
			f := NewRouter(tc.dir, q).Route(context.Background(), testHost, testSub)
			if f != tc.want {
				t.Fatalf("got fault %v, want %v", f, tc.want)
			}
			if len(q.calls) != tc.enqueued {
				t.Fatalf("expected %d enqueue calls, got %d", tc.enqueued, len(q.calls))
			}
		})
	}
}
