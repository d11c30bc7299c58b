package model

import "time"

// CarrierKind is the API dialect a carrier speaks.
type CarrierKind string

const (
	CarrierTwilio CarrierKind = "twilio"
	CarrierThinQ  CarrierKind = "thinq"
)

func (k CarrierKind) String() string { return string(k) }

// ParseCarrierKind returns (kind, true) for implemented APIs only. The
// match is exact: "Twilio" or "twilio " is not an implemented API.
func ParseCarrierKind(s string) (CarrierKind, bool) {
	switch CarrierKind(s) {
	case CarrierTwilio, CarrierThinQ:
		return CarrierKind(s), true
	default:
		return CarrierKind(s), false
	}
}

// Carrier is an upstream SMS provider. Secret fields hold vault envelopes.
type Carrier struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	API      string `db:"api"` // twilio|thinq|...
	Enabled  bool   `db:"enabled"`
	Priority int    `db:"priority"` // lower = preferred

	TwilioAccountSID string `db:"twilio_account_sid"`
	TwilioAuthToken  string `db:"twilio_auth_token"`

	ThinQAccountID   string `db:"thinq_account_id"`
	ThinQAPIUsername string `db:"thinq_api_username"`
	ThinQAPIToken    string `db:"thinq_api_token"`

	FromNumber string    `db:"from_number"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Kind resolves the carrier API string; ok is false for unimplemented APIs.
func (c Carrier) Kind() (CarrierKind, bool) {
	return ParseCarrierKind(c.API)
}
