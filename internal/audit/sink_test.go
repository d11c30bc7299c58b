package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	batches [][]model.AuditEvent
	err     error
	block   chan struct{}
}

func (m *memStore) InsertBatch(ctx context.Context, events []model.AuditEvent) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, append([]model.AuditEvent(nil), events...))
	return nil
}

func (m *memStore) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestEvent(t *testing.T) {
	ev := Event("Failure synchronizing message status", "reconcile", model.SeverityError, map[string]string{"reason": "x"}, "01HX")
	if ev.RelatedID == nil || *ev.RelatedID != "01HX" {
		t.Fatalf("expected related id, got %v", ev.RelatedID)
	}
	var details map[string]string
	if err := json.Unmarshal(ev.Details, &details); err != nil || details["reason"] != "x" {
		t.Fatalf("unexpected details %s (%v)", ev.Details, err)
	}

	if ev := Event("m", "s", model.SeverityInfo, nil, ""); ev.RelatedID != nil {
		t.Fatalf("empty related id must stay nil")
	}
}

func TestSink_FlushesOnClose(t *testing.T) {
	store := &memStore{}
	s := NewSink(store, 10, time.Hour)
	s.Start(context.Background())

	for i := 0; i < 25; i++ {
		s.Record(model.AuditEvent{Message: "e", Source: "test", Severity: model.SeverityInfo})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got := store.total(); got != 25 {
		t.Fatalf("expected 25 events written, got %d", got)
	}
	for _, b := range store.batches {
		if len(b) > 10 {
			t.Fatalf("batch larger than batch size: %d", len(b))
		}
	}
}

func TestSink_FlushesOnTick(t *testing.T) {
	store := &memStore{}
	s := NewSink(store, 100, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Close(context.Background())

	s.Record(model.AuditEvent{Message: "tick"})

	deadline := time.Now().Add(time.Second)
	for store.total() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.total() != 1 {
		t.Fatalf("expected tick flush")
	}
}

func TestSink_RecordNeverBlocks(t *testing.T) {
	store := &memStore{block: make(chan struct{})}
	s := NewSink(store, 1, time.Millisecond)
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			s.Record(model.AuditEvent{Message: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Record blocked while the store was stuck")
	}
	close(store.block)
	_ = s.Close(context.Background())
}

func TestSink_FailingStoreAndClosedSink(t *testing.T) {
	store := &memStore{err: errors.New("clickhouse down")}
	s := NewSink(store, 2, time.Hour)
	s.Start(context.Background())

	s.Record(model.AuditEvent{Message: "a"})
	s.Record(model.AuditEvent{Message: "b"})
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// after close Record is a silent drop
	s.Record(model.AuditEvent{Message: "late"})
	if store.total() != 0 {
		t.Fatalf("failing store must not retain events")
	}
}
