package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/carrier"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/reconcile"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
)

// versionedMessages mimics the version-guarded update of the SQL repository.
type versionedMessages struct {
	mu   sync.Mutex
	rows map[string]model.Message
}

func (s *versionedMessages) Get(_ context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *versionedMessages) Finalize(_ context.Context, m model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[m.ID]
	if !ok || cur.Version != m.Version || cur.Outcome().Terminal() {
		return repository.ErrVersionConflict
	}
	m.Version++
	s.rows[m.ID] = m
	return nil
}

type staticCarrier model.Carrier

func (c staticCarrier) GetEnabled(_ context.Context, id int64) (*model.Carrier, error) {
	v := model.Carrier(c)
	if v.ID != id || !v.Enabled {
		return nil, nil
	}
	return &v, nil
}

type openLock struct{}

func (openLock) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

// lastStatusTask keeps the most recent re-published task.
type lastStatusTask struct {
	task *model.StatusTask
}

func (p *lastStatusTask) PublishStatus(_ context.Context, t model.StatusTask) error {
	p.task = &t
	return nil
}

func TestStatusWorker_SpacesRetriesWithBackoff(t *testing.T) {
	r := &fakeReconciler{err: transientErr()}
	pub := &fakeStatusPublisher{}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	w := NewStatusWorker(nil, r, pub, &recorder{})
	w.RetryBackoff = 30 * time.Second
	w.now = func() time.Time { return now }

	w.Handle(context.Background(), model.StatusTask{MessageID: "m1", Attempt: 1})
	w.Handle(context.Background(), model.StatusTask{MessageID: "m1", Attempt: 2})

	if len(pub.tasks) != 2 {
		t.Fatalf("expected two retries, got %+v", pub.tasks)
	}
	if want := now.Add(30 * time.Second); !pub.tasks[0].NotBefore.Equal(want) {
		t.Fatalf("first retry NotBefore = %v, want %v", pub.tasks[0].NotBefore, want)
	}
	if want := now.Add(60 * time.Second); !pub.tasks[1].NotBefore.Equal(want) {
		t.Fatalf("second retry NotBefore = %v, want %v", pub.tasks[1].NotBefore, want)
	}
}

func TestStatusWorker_CancelledWaitSkipsReconcile(t *testing.T) {
	r := &fakeReconciler{}
	w := NewStatusWorker(nil, r, &fakeStatusPublisher{}, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Handle(ctx, model.StatusTask{MessageID: "m1", Attempt: 2, NotBefore: time.Now().Add(time.Hour)})

	if r.reconcile != 0 {
		t.Fatalf("reconcile must wait for NotBefore, ran %d times", r.reconcile)
	}
}

// A carrier outage shorter than the retry schedule must not close the
// message; the later attempt records what the carrier reports.
func TestStatusWorker_ShortOutageDoesNotForceClosure(t *testing.T) {
	var calls atomic.Int32
	start := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		if time.Since(start) < 500*time.Millisecond {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"undelivered"}`))
	}))
	defer srv.Close()

	v, _ := vault.New("worker-test-key")
	token, _ := v.Encrypt("tw-token")
	c := staticCarrier{ID: 1, API: "twilio", Enabled: true, TwilioAccountSID: "AC1", TwilioAuthToken: token}

	msgs := &versionedMessages{rows: map[string]model.Message{
		"m1": {ID: "m1", CarrierID: 1, CarrierMessageUID: "SM1", Status: "queued"},
	}}
	clients := carrier.NewFactory(v, carrier.Config{Twilio: carrier.APIConfig{BaseURL: srv.URL, Timeout: time.Second}})
	rec := &recorder{}
	r := reconcile.New(msgs, c, clients, openLock{}, rec)

	pub := &lastStatusTask{}
	w := NewStatusWorker(nil, r, pub, rec)
	w.RetryBackoff = 300 * time.Millisecond

	task := model.StatusTask{MessageID: "m1", Attempt: 1}
	for i := 0; i < 5; i++ {
		pub.task = nil
		w.Handle(context.Background(), task)
		if pub.task == nil {
			break
		}
		task = *pub.task
	}

	got, _ := msgs.Get(context.Background(), "m1")
	if got.Outcome() != model.OutcomeFailed || got.Status != "undelivered" {
		t.Fatalf("expected carrier verdict undelivered/failed, got status=%q outcome=%s", got.Status, got.Outcome())
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 carrier calls, got %d", n)
	}
}
