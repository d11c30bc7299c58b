// Package sweeper periodically hands in-flight messages back to the status
// workers.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"go.uber.org/zap"
)

type InFlightStore interface {
	ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
	MarkPolled(ctx context.Context, ids []string, at time.Time) error
}

type StatusEnqueuer interface {
	EnqueueStatus(ctx context.Context, messageID string) error
}

type Config struct {
	Interval  time.Duration // default 1m
	MinAge    time.Duration // only messages at least this old
	BatchSize int           // default 200
}

// Sweeper finds messages that are still in flight after MinAge and asks a
// status worker to reconcile each of them. Listed messages are stamped as
// polled so a backlog of messages that never settle cannot starve newer
// ones.
type Sweeper struct {
	messages InFlightStore
	queue    StatusEnqueuer
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
}

func New(messages InFlightStore, queue StatusEnqueuer, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Sweeper{
		messages: messages,
		queue:    queue,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Named("sweeper"),
	}
}

// Sweep enqueues one status task per in-flight message and returns how
// many were enqueued. It stops at the first publish error; only enqueued
// messages are marked polled.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.messages.ListInFlight(ctx, now.Add(-s.cfg.MinAge), s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list in-flight: %w", err)
	}

	n := 0
	var pubErr error
	for _, id := range ids {
		if pubErr = s.queue.EnqueueStatus(ctx, id); pubErr != nil {
			break
		}
		n++
	}
	metrics.SweepEnqueuedTotal.Add(float64(n))

	if n > 0 {
		if err := s.messages.MarkPolled(ctx, ids[:n], now); err != nil {
			return n, fmt.Errorf("mark polled: %w", err)
		}
	}
	if pubErr != nil {
		return n, fmt.Errorf("enqueue status: %w", pubErr)
	}
	return n, nil
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", zap.Duration("interval", s.cfg.Interval), zap.Duration("min_age", s.cfg.MinAge))
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick never lets a failing or panicking sweep stop the loop.
func (s *Sweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep panic recovered", zap.Any("panic", r))
		}
	}()

	n, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("sweep failed", zap.Int("enqueued", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("sweep enqueued status tasks", zap.Int("enqueued", n))
	}
}
