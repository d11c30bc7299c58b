package worker

import (
	"context"
	"encoding/json"

	"github.com/jmehdipour/wctp-gateway/internal/audit"
	"github.com/jmehdipour/wctp-gateway/internal/carrier"
	"github.com/jmehdipour/wctp-gateway/internal/kafka"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"go.uber.org/zap"
)

const sendSource = "worker.sender"

type CarrierLookup interface {
	GetEnabled(ctx context.Context, id int64) (*model.Carrier, error)
}

type SenderFactory interface {
	Sender(c model.Carrier) (carrier.Sender, error)
}

type MessageRecorder interface {
	Get(ctx context.Context, id string) (*model.Message, error)
	Insert(ctx context.Context, m model.Message) error
}

type SendPublisher interface {
	PublishSend(ctx context.Context, task model.SendTask) error
}

// SendWorker delivers queued messages through their chosen carrier and
// records the resulting Message for later reconciliation.
type SendWorker struct {
	Consumer    Consumer
	Carriers    CarrierLookup
	Clients     SenderFactory
	Messages    MessageRecorder
	Retry       SendPublisher
	Audit       audit.Recorder
	Topic       string
	Workers     int
	MaxAttempts int

	log *zap.Logger
}

func NewSendWorker(
	consumer Consumer,
	carriers CarrierLookup,
	clients SenderFactory,
	messages MessageRecorder,
	retry SendPublisher,
	rec audit.Recorder,
) *SendWorker {
	return &SendWorker{
		Consumer:    consumer,
		Carriers:    carriers,
		Clients:     clients,
		Messages:    messages,
		Retry:       retry,
		Audit:       rec,
		Topic:       "wctp.send",
		Workers:     16,
		MaxAttempts: 3,
		log:         logger.Named("worker.sender"),
	}
}

// Run blocks until ctx is cancelled.
func (w *SendWorker) Run(ctx context.Context) error {
	if w.log == nil {
		w.log = logger.Named("worker.sender")
	}
	p := &pool{consumer: w.Consumer, workers: w.Workers, handle: w.processOne, log: w.log}
	return p.run(ctx)
}

func (w *SendWorker) processOne(ctx context.Context, m kafka.Message) {
	var task model.SendTask
	if err := json.Unmarshal(m.Value, &task); err != nil || task.ID == "" {
		w.logger().Error("bad send task", zap.ByteString("key", m.Key), zap.Error(err))
		return
	}
	w.Handle(ctx, task)
}

// Handle performs one send attempt. Tasks whose message already exists
// are duplicates and are dropped.
func (w *SendWorker) Handle(ctx context.Context, task model.SendTask) {
	log := w.logger().With(zap.String("message_id", task.ID), zap.Int("attempt", task.Attempt))

	existing, err := w.Messages.Get(ctx, task.ID)
	if err != nil {
		log.Error("message lookup failed", zap.Error(err))
		w.retry(ctx, task, err)
		return
	}
	if existing != nil {
		log.Debug("duplicate send task")
		return
	}

	c, err := w.Carriers.GetEnabled(ctx, task.CarrierID)
	if err != nil {
		log.Error("carrier lookup failed", zap.Error(err))
		w.retry(ctx, task, err)
		return
	}
	if c == nil {
		w.record("Failure sending message", task.ID, map[string]any{"reason": "carrier disabled", "carrier_id": task.CarrierID})
		return
	}

	kind, _ := c.Kind()
	sender, err := w.Clients.Sender(*c)
	if err != nil {
		if carrier.IsUnsupported(err) {
			w.record("Failure sending message", task.ID, map[string]any{"reason": "carrier api not implemented", "api": c.API})
			return
		}
		w.retry(ctx, task, err)
		return
	}

	rcpt, err := sender.Send(ctx, task.Recipient, task.Body)
	if err != nil {
		metrics.SendsTotal.WithLabelValues(kind.String(), "failed").Inc()
		log.Warn("carrier send failed", zap.Int64("carrier_id", c.ID), zap.Error(err))
		w.retry(ctx, task, err)
		return
	}
	metrics.SendsTotal.WithLabelValues(kind.String(), "sent").Inc()

	status := rcpt.Status
	if status == "" {
		status = "sent"
	}
	msg := model.Message{
		ID:                task.ID,
		EnterpriseHostID:  task.HostID,
		CarrierID:         c.ID,
		CarrierMessageUID: rcpt.UID,
		Recipient:         task.Recipient,
		Body:              task.Body,
		Status:            status,
	}
	// The carrier has accepted the message; retrying the task would send
	// it twice, so a failed insert is only audited.
	if err := w.Messages.Insert(ctx, msg); err != nil {
		log.Error("record sent message failed", zap.String("carrier_message_uid", rcpt.UID), zap.Error(err))
		w.record("Failure recording sent message", task.ID, map[string]any{
			"carrier_id": c.ID, "carrier_message_uid": rcpt.UID, "error": err.Error(),
		})
		return
	}
	log.Info("message sent", zap.Int64("carrier_id", c.ID), zap.String("carrier_message_uid", rcpt.UID))
}

func (w *SendWorker) retry(ctx context.Context, task model.SendTask, cause error) {
	if task.Attempt >= w.maxAttempts() {
		metrics.TasksAbandonedTotal.WithLabelValues(w.Topic).Inc()
		w.record("Send task abandoned", task.ID, map[string]any{"attempts": task.Attempt, "error": cause.Error()})
		return
	}

	next := task
	next.Attempt++
	if err := w.Retry.PublishSend(ctx, next); err != nil {
		w.record("Failure re-queueing send task", task.ID, map[string]any{"attempt": next.Attempt, "error": err.Error()})
		return
	}
	metrics.TaskRetriesTotal.WithLabelValues(w.Topic).Inc()
}

func (w *SendWorker) maxAttempts() int {
	if w.MaxAttempts <= 0 {
		return 3
	}
	return w.MaxAttempts
}

func (w *SendWorker) record(message, messageID string, details map[string]any) {
	if w.Audit != nil {
		w.Audit.Record(audit.Event(message, sendSource, model.SeverityError, details, messageID))
	}
}

func (w *SendWorker) logger() *zap.Logger {
	if w.log == nil {
		return logger.Log
	}
	return w.log
}
