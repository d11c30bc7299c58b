package model

import "time"

// Outcome is the canonical, carrier-independent delivery result.
type Outcome string

const (
	OutcomeInFlight  Outcome = "in_flight"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) String() string {
	return string(o)
}

func (o Outcome) Terminal() bool {
	return o == OutcomeDelivered || o == OutcomeFailed
}

// SafeDefaultStatus is written when a message is force-closed.
const SafeDefaultStatus = "delivered"

// Message is one outbound SMS persisted in the messages table.
// Status carries the carrier-native vocabulary; the canonical outcome is
// derived from the terminal timestamps.
type Message struct {
	ID                string     `db:"id"`
	EnterpriseHostID  int64      `db:"enterprise_host_id"`
	CarrierID         int64      `db:"carrier_id"`
	CarrierMessageUID string     `db:"carrier_message_uid"`
	Recipient         string     `db:"recipient"`
	Body              string     `db:"body"`
	Status            string     `db:"status"`
	DeliveredAt       *time.Time `db:"delivered_at"`
	FailedAt          *time.Time `db:"failed_at"`
	PolledAt          *time.Time `db:"polled_at"`
	Version           int64      `db:"version"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (m Message) Outcome() Outcome {
	switch {
	case m.DeliveredAt != nil:
		return OutcomeDelivered
	case m.FailedAt != nil:
		return OutcomeFailed
	default:
		return OutcomeInFlight
	}
}

// Finalize returns a copy of m closed with the given outcome at ts.
func (m Message) Finalize(status string, outcome Outcome, ts time.Time) Message {
	out := m
	out.Status = status
	out.DeliveredAt, out.FailedAt = nil, nil
	switch outcome {
	case OutcomeDelivered:
		out.DeliveredAt = &ts
	case OutcomeFailed:
		out.FailedAt = &ts
	}
	return out
}
