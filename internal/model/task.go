package model

import "time"

// SendTask is the payload published to the send topic. Carrier secrets
// never travel on the queue; workers re-resolve the carrier by id.
type SendTask struct {
	ID        string `json:"id"` // ULID, becomes the message id
	HostID    int64  `json:"host_id"`
	SenderID  string `json:"sender_id"`
	CarrierID int64  `json:"carrier_id"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Attempt   int    `json:"attempt"`
}

// StatusTask asks a status worker to reconcile one message. Retries carry
// a NotBefore so that attempts are spread over the backoff schedule.
type StatusTask struct {
	MessageID string    `json:"message_id"`
	Attempt   int       `json:"attempt"`
	NotBefore time.Time `json:"not_before"`
}
