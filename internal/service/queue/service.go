package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/util"
)

const (
	DefaultSendTopic   = "wctp.send"
	DefaultStatusTopic = "wctp.status"
)

var ErrNoPublisher = errors.New("queue: publisher is not configured")

// Publisher writes one keyed message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service turns domain requests into send and status tasks. Tasks are
// keyed by their subject id so retries of one message stay ordered on a
// single partition.
type Service struct {
	pub         Publisher
	sendTopic   string
	statusTopic string
}

func New(pub Publisher, sendTopic, statusTopic string) *Service {
	if sendTopic == "" {
		sendTopic = DefaultSendTopic
	}
	if statusTopic == "" {
		statusTopic = DefaultStatusTopic
	}
	return &Service{pub: pub, sendTopic: sendTopic, statusTopic: statusTopic}
}

func (s *Service) SendTopic() string   { return s.sendTopic }
func (s *Service) StatusTopic() string { return s.statusTopic }

// EnqueueSend publishes the first attempt of a send task. The generated
// task id becomes the message id.
func (s *Service) EnqueueSend(ctx context.Context, host model.EnterpriseHost, carrier model.Carrier, recipient, body string) error {
	return s.PublishSend(ctx, model.SendTask{
		ID:        util.NewID(),
		HostID:    host.ID,
		SenderID:  host.SenderID,
		CarrierID: carrier.ID,
		Recipient: recipient,
		Body:      body,
		Attempt:   1,
	})
}

// EnqueueStatus publishes the first attempt of a status task.
func (s *Service) EnqueueStatus(ctx context.Context, messageID string) error {
	return s.PublishStatus(ctx, model.StatusTask{MessageID: messageID, Attempt: 1})
}

func (s *Service) PublishSend(ctx context.Context, task model.SendTask) error {
	return s.publish(ctx, s.sendTopic, task.ID, task)
}

func (s *Service) PublishStatus(ctx context.Context, task model.StatusTask) error {
	return s.publish(ctx, s.statusTopic, task.MessageID, task)
}

func (s *Service) publish(ctx context.Context, topic, key string, task any) error {
	if s.pub == nil {
		return ErrNoPublisher
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.pub.Publish(ctx, topic, []byte(key), payload); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
