package model

import "time"

// EnterpriseHost is an authorized WCTP submitter.
type EnterpriseHost struct {
	ID           int64     `db:"id"`
	SenderID     string    `db:"sender_id"`     // unique
	SecurityCode string    `db:"security_code"` // vault envelope
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
