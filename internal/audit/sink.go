// Package audit keeps a best-effort trail of background failures. Record
// never blocks the caller; events are flushed to the event log store in
// batches.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"go.uber.org/zap"
)

const flushTimeout = 5 * time.Second

type Store interface {
	InsertBatch(ctx context.Context, events []model.AuditEvent) error
}

type Recorder interface {
	Record(ev model.AuditEvent)
}

// Event builds an AuditEvent. details is JSON-encoded; relatedID may be
// empty.
func Event(message, source string, severity model.Severity, details any, relatedID string) model.AuditEvent {
	raw, err := json.Marshal(details)
	if err != nil {
		raw, _ = json.Marshal(err.Error())
	}
	ev := model.AuditEvent{
		Message:   message,
		Source:    source,
		Severity:  severity,
		Details:   raw,
		CreatedAt: time.Now().UTC(),
	}
	if relatedID != "" {
		ev.RelatedID = &relatedID
	}
	return ev
}

// Sink buffers events in an unbounded mailbox drained by one writer
// goroutine.
type Sink struct {
	store     Store
	batchSize int
	batchWait time.Duration
	log       *zap.Logger

	mu      sync.Mutex
	pending []model.AuditEvent
	closed  bool

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewSink(store Store, batchSize int, batchWait time.Duration) *Sink {
	if batchSize <= 0 {
		batchSize = 100
	}
	if batchWait <= 0 {
		batchWait = time.Second
	}
	return &Sink{
		store:     store,
		batchSize: batchSize,
		batchWait: batchWait,
		log:       logger.Named("audit"),
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

var _ Recorder = (*Sink)(nil)

func (s *Sink) Record(ev model.AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("audit record panicked", zap.Any("panic", r))
		}
	}()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if len(ev.Details) == 0 {
		ev.Details = json.RawMessage("null")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Warn("audit event after close dropped", zap.String("message", ev.Message))
		return
	}
	s.pending = append(s.pending, ev)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if full {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

// Start runs the writer until ctx is cancelled or Close is called.
func (s *Sink) Start(ctx context.Context) {
	go s.run(ctx)
}

// Close stops accepting events, flushes what is buffered and waits for the
// writer or ctx, whichever is first.
func (s *Sink) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stop)
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run(ctx context.Context) {
	defer close(s.done)

	tick := time.NewTicker(s.batchWait)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-s.stop:
			s.flush()
			return
		case <-s.notify:
			s.flush()
		case <-tick.C:
			s.flush()
		}
	}
}

func (s *Sink) flush() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for len(batch) > 0 {
		n := min(len(batch), s.batchSize)
		s.write(batch[:n])
		batch = batch[n:]
	}
}

// write drops the chunk on failure; the trail is best effort.
func (s *Sink) write(events []model.AuditEvent) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := s.store.InsertBatch(ctx, events); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Add(float64(len(events)))
		s.log.Error("audit flush failed", zap.Int("events", len(events)), zap.Error(err))
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("written").Add(float64(len(events)))
}
