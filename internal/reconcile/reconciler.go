// Package reconcile folds carrier delivery status into in-flight messages.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/audit"
	"github.com/jmehdipour/wctp-gateway/internal/carrier"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"go.uber.org/zap"
)

const (
	auditSource = "reconcile"

	msgSyncFailure   = "Failure synchronizing message status"
	msgUpdateFailure = "Failure updating message status"
	msgForceClosed   = "Message status force-closed"
)

type MessageStore interface {
	Get(ctx context.Context, id string) (*model.Message, error)
	Finalize(ctx context.Context, m model.Message) error
}

type CarrierLookup interface {
	GetEnabled(ctx context.Context, id int64) (*model.Carrier, error)
}

// QuerierFactory builds a status client with decrypted credentials.
type QuerierFactory interface {
	StatusQuerier(c model.Carrier) (carrier.StatusQuerier, error)
}

type Reconciler struct {
	messages MessageStore
	carriers CarrierLookup
	clients  QuerierFactory
	locks    Locker
	audit    audit.Recorder
	now      func() time.Time
	log      *zap.Logger
}

func New(messages MessageStore, carriers CarrierLookup, clients QuerierFactory, locks Locker, rec audit.Recorder) *Reconciler {
	return &Reconciler{
		messages: messages,
		carriers: carriers,
		clients:  clients,
		locks:    locks,
		audit:    rec,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Named("reconcile"),
	}
}

// Reconcile queries the carrier that sent messageID and records a terminal
// outcome if the carrier has one. Terminal messages, messages locked by
// another reconciler and lost compare-and-swap races are no-ops.
//
// Errors are classified with IsTransient and IsStoreFailure.
func (r *Reconciler) Reconcile(ctx context.Context, messageID string) error {
	return r.withMessage(ctx, messageID, func(m model.Message) error {
		c, err := r.carriers.GetEnabled(ctx, m.CarrierID)
		if err != nil {
			r.record(msgSyncFailure, m.ID, map[string]any{"reason": "carrier lookup failed", "error": err.Error()})
			return storeFailure(err, "load carrier", map[string]any{"carrier_id": m.CarrierID})
		}
		if c == nil {
			r.record(msgSyncFailure, m.ID, map[string]any{"reason": "no enabled carrier for message", "carrier_id": m.CarrierID})
			return r.finalize(ctx, m, model.SafeDefaultStatus, model.OutcomeDelivered, "forced")
		}

		q, err := r.clients.StatusQuerier(*c)
		if err != nil {
			r.record(msgSyncFailure, m.ID, map[string]any{"reason": "status client unavailable", "carrier_id": c.ID, "error": err.Error()})
			if carrier.IsUnsupported(err) {
				metrics.ReconciliationsTotal.WithLabelValues("in_flight").Inc()
				return nil
			}
			return err
		}

		v, err := q.QueryStatus(ctx, m.CarrierMessageUID)
		switch {
		case carrier.IsNoNotifications(err):
			r.record(msgSyncFailure, m.ID, map[string]any{"reason": "no delivery notifications", "carrier_id": c.ID})
			return r.finalize(ctx, m, model.SafeDefaultStatus, model.OutcomeDelivered, "forced")
		case err != nil:
			r.record(msgSyncFailure, m.ID, map[string]any{"reason": "status query failed", "carrier_id": c.ID, "error": err.Error()})
			return err
		}

		if !v.Outcome.Terminal() {
			metrics.ReconciliationsTotal.WithLabelValues("in_flight").Inc()
			return nil
		}
		return r.finalize(ctx, m, v.Status, v.Outcome, v.Outcome.String())
	})
}

// ForceClose closes an in-flight message with the safe default status.
// It is used once the retry budget for a carrier failure is spent.
func (r *Reconciler) ForceClose(ctx context.Context, messageID, reason string) error {
	return r.withMessage(ctx, messageID, func(m model.Message) error {
		r.record(msgForceClosed, m.ID, map[string]any{"reason": reason, "carrier_id": m.CarrierID})
		return r.finalize(ctx, m, model.SafeDefaultStatus, model.OutcomeDelivered, "forced")
	})
}

func (r *Reconciler) withMessage(ctx context.Context, messageID string, fn func(m model.Message) error) error {
	release, ok, err := r.locks.Acquire(ctx, messageID)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return storeFailure(err, "acquire message lock", map[string]any{"message_id": messageID})
	}
	if !ok {
		metrics.ReconciliationsTotal.WithLabelValues("skipped").Inc()
		r.log.Debug("message locked elsewhere", zap.String("message_id", messageID))
		return nil
	}
	defer release()

	m, err := r.messages.Get(ctx, messageID)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		r.record(msgSyncFailure, messageID, map[string]any{"reason": "message lookup failed", "error": err.Error()})
		return storeFailure(err, "load message", map[string]any{"message_id": messageID})
	}
	if m == nil {
		metrics.ReconciliationsTotal.WithLabelValues("skipped").Inc()
		r.record(msgSyncFailure, messageID, map[string]any{"reason": "message not found"})
		return nil
	}
	if m.Outcome().Terminal() {
		metrics.ReconciliationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	return fn(*m)
}

func (r *Reconciler) finalize(ctx context.Context, m model.Message, status string, outcome model.Outcome, label string) error {
	err := r.messages.Finalize(ctx, m.Finalize(status, outcome, r.now()))
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		metrics.ReconciliationsTotal.WithLabelValues("conflict").Inc()
		r.log.Debug("message finalized concurrently", zap.String("message_id", m.ID))
		return nil
	case err != nil:
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		r.record(msgUpdateFailure, m.ID, map[string]any{"status": status, "error": err.Error()})
		return storeFailure(err, "finalize message", map[string]any{"message_id": m.ID})
	}

	metrics.ReconciliationsTotal.WithLabelValues(label).Inc()
	r.log.Info("message finalized",
		zap.String("message_id", m.ID), zap.String("status", status), zap.String("outcome", outcome.String()))
	return nil
}

func (r *Reconciler) record(message, messageID string, details map[string]any) {
	if r.audit == nil {
		return
	}
	r.audit.Record(audit.Event(message, auditSource, model.SeverityError, details, messageID))
}
