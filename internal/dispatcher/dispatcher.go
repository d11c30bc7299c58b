// Package dispatcher picks the upstream carrier for an authenticated
// submission and hands the message to the send queue.
package dispatcher

import (
	"context"

	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/wctp"
	"go.uber.org/zap"
)

// SendEnqueuer accepts a message for asynchronous delivery through carrier.
type SendEnqueuer interface {
	EnqueueSend(ctx context.Context, host model.EnterpriseHost, carrier model.Carrier, recipient, body string) error
}

// Router performs a single static selection per submission: the enabled
// carrier with the lowest priority. There is no failover to another
// carrier once one has been chosen.
type Router struct {
	carriers repository.CarrierDirectory
	queue    SendEnqueuer
	log      *zap.Logger
}

func NewRouter(carriers repository.CarrierDirectory, queue SendEnqueuer) *Router {
	return &Router{carriers: carriers, queue: queue, log: logger.Named("dispatcher")}
}

// Route returns nil once the message is queued, or the fault to report.
func (r *Router) Route(ctx context.Context, host model.EnterpriseHost, sub wctp.Submission) *wctp.Fault {
	c, err := r.carriers.FirstEnabled(ctx)
	if err != nil {
		r.log.Error("carrier lookup failed", zap.Error(err))
		return wctp.FaultCarrierUnavailable
	}
	if c == nil {
		r.log.Warn("no enabled carriers", zap.String("sender_id", host.SenderID))
		return wctp.FaultNoCarrier
	}

	kind, ok := c.Kind()
	if !ok {
		r.log.Warn("carrier api not implemented",
			zap.Int64("carrier_id", c.ID), zap.String("api", c.API))
		return wctp.FaultCarrierAPI
	}

	if err := r.queue.EnqueueSend(ctx, host, *c, sub.Recipient, sub.Message); err != nil {
		metrics.DispatchesTotal.WithLabelValues(kind.String(), "failed").Inc()
		r.log.Error("enqueue send failed",
			zap.Int64("carrier_id", c.ID), zap.String("sender_id", host.SenderID), zap.Error(err))
		return wctp.FaultEnqueue
	}

	metrics.DispatchesTotal.WithLabelValues(kind.String(), "queued").Inc()
	return nil
}
