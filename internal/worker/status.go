package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/audit"
	"github.com/jmehdipour/wctp-gateway/internal/kafka"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/reconcile"
	"go.uber.org/zap"
)

const statusSource = "worker.status"

type Reconciler interface {
	Reconcile(ctx context.Context, messageID string) error
	ForceClose(ctx context.Context, messageID, reason string) error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, task model.StatusTask) error
}

// StatusWorker reconciles one message per status task with a bounded
// attempt budget. When the budget runs out on a carrier failure the
// message is force-closed; on a store failure the task is abandoned and
// the sweeper will pick the message up again.
//
// Attempt n+1 is not started before RetryBackoff * 2^(n-1) has passed
// since attempt n failed.
type StatusWorker struct {
	Consumer     Consumer
	Reconciler   Reconciler
	Retry        StatusPublisher
	Audit        audit.Recorder
	Topic        string
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration

	now func() time.Time
	log *zap.Logger
}

func NewStatusWorker(consumer Consumer, r Reconciler, retry StatusPublisher, rec audit.Recorder) *StatusWorker {
	return &StatusWorker{
		Consumer:     consumer,
		Reconciler:   r,
		Retry:        retry,
		Audit:        rec,
		Topic:        "wctp.status",
		Workers:      16,
		MaxAttempts:  3,
		RetryBackoff: 30 * time.Second,
		now:          time.Now,
		log:          logger.Named("worker.status"),
	}
}

func (w *StatusWorker) Run(ctx context.Context) error {
	if w.log == nil {
		w.log = logger.Named("worker.status")
	}
	p := &pool{consumer: w.Consumer, workers: w.Workers, handle: w.processOne, log: w.log}
	return p.run(ctx)
}

func (w *StatusWorker) processOne(ctx context.Context, m kafka.Message) {
	var task model.StatusTask
	if err := json.Unmarshal(m.Value, &task); err != nil || task.MessageID == "" {
		w.logger().Error("bad status task", zap.ByteString("key", m.Key), zap.Error(err))
		return
	}
	w.Handle(ctx, task)
}

func (w *StatusWorker) Handle(ctx context.Context, task model.StatusTask) {
	if task.Attempt <= 0 {
		task.Attempt = 1
	}
	log := w.logger().With(zap.String("message_id", task.MessageID), zap.Int("attempt", task.Attempt))

	// a cancelled wait drops the task; the sweeper lists the message again
	if err := w.waitUntil(ctx, task.NotBefore); err != nil {
		log.Debug("status task interrupted before its retry time", zap.Error(err))
		return
	}

	err := w.Reconciler.Reconcile(ctx, task.MessageID)
	if err == nil {
		return
	}
	log.Warn("reconcile failed", zap.Error(err))

	if task.Attempt < w.maxAttempts() {
		next := task
		next.Attempt++
		next.NotBefore = w.clock().Add(w.backoff(task.Attempt))
		if perr := w.Retry.PublishStatus(ctx, next); perr != nil {
			w.record("Failure re-queueing status task", task.MessageID, map[string]any{"attempt": next.Attempt, "error": perr.Error()})
			return
		}
		metrics.TaskRetriesTotal.WithLabelValues(w.Topic).Inc()
		return
	}

	metrics.TasksAbandonedTotal.WithLabelValues(w.Topic).Inc()
	if reconcile.IsTransient(err) {
		reason := fmt.Sprintf("status retries exhausted after %d attempts: %v", task.Attempt, err)
		if cerr := w.Reconciler.ForceClose(ctx, task.MessageID, reason); cerr != nil {
			log.Error("force close failed", zap.Error(cerr))
			w.record("Status task abandoned", task.MessageID, map[string]any{"attempts": task.Attempt, "error": cerr.Error()})
		}
		return
	}
	w.record("Status task abandoned", task.MessageID, map[string]any{"attempts": task.Attempt, "error": err.Error()})
}

// backoff is the delay after the given failed attempt: RetryBackoff,
// then doubled for every further attempt.
func (w *StatusWorker) backoff(attempt int) time.Duration {
	base := w.RetryBackoff
	if base <= 0 {
		base = 30 * time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

func (w *StatusWorker) waitUntil(ctx context.Context, at time.Time) error {
	if at.IsZero() {
		return nil
	}
	d := at.Sub(w.clock())
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *StatusWorker) clock() time.Time {
	if w.now == nil {
		return time.Now()
	}
	return w.now()
}

func (w *StatusWorker) maxAttempts() int {
	if w.MaxAttempts <= 0 {
		return 3
	}
	return w.MaxAttempts
}

func (w *StatusWorker) record(message, messageID string, details map[string]any) {
	if w.Audit != nil {
		w.Audit.Record(audit.Event(message, statusSource, model.SeverityError, details, messageID))
	}
}

func (w *StatusWorker) logger() *zap.Logger {
	if w.log == nil {
		return logger.Log
	}
	return w.log
}
