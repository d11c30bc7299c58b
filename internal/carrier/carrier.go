// Package carrier talks to upstream SMS carriers: sending messages and
// querying their delivery status, folded into model.Outcome.
package carrier

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
)

const (
	defaultTimeout = 10 * time.Second
	maxReplyBytes  = 1 << 20
)

// Verdict is one status observation. Outcome is OutcomeInFlight when the
// carrier has not decided yet.
type Verdict struct {
	Status  string
	Outcome model.Outcome
	At      time.Time
}

// Receipt is what a carrier returns for an accepted send.
type Receipt struct {
	UID    string
	Status string
}

type StatusQuerier interface {
	QueryStatus(ctx context.Context, uid string) (Verdict, error)
}

type Sender interface {
	Send(ctx context.Context, to, body string) (Receipt, error)
}

type APIConfig struct {
	BaseURL       string
	Timeout       time.Duration
	FailThreshold int
	OpenFor       time.Duration
}

type Config struct {
	Twilio APIConfig
	ThinQ  APIConfig
}

// Factory builds carrier clients with decrypted credentials. Send
// breakers are kept per carrier id for the life of the factory.
type Factory struct {
	dec vault.Decrypter
	cfg Config

	mu       sync.Mutex
	breakers map[int64]*Breaker
}

func NewFactory(dec vault.Decrypter, cfg Config) *Factory {
	return &Factory{dec: dec, cfg: cfg, breakers: make(map[int64]*Breaker)}
}

func (f *Factory) StatusQuerier(c model.Carrier) (StatusQuerier, error) {
	return f.build(c, nil)
}

func (f *Factory) Sender(c model.Carrier) (Sender, error) {
	kind, _ := c.Kind()
	api := f.cfg.Twilio
	if kind == model.CarrierThinQ {
		api = f.cfg.ThinQ
	}
	return f.build(c, f.breaker(c.ID, api))
}

type client interface {
	StatusQuerier
	Sender
}

func (f *Factory) build(c model.Carrier, br *Breaker) (client, error) {
	kind, ok := c.Kind()
	if !ok {
		return nil, unsupported(c.API)
	}

	meta := map[string]any{"carrier_id": c.ID, "carrier": c.Name}
	switch kind {
	case model.CarrierTwilio:
		token, err := f.dec.Decrypt(c.TwilioAuthToken)
		if err != nil {
			return nil, credentialsUnreadable(err, meta)
		}
		return &Twilio{
			baseURL:    f.cfg.Twilio.BaseURL,
			accountSID: c.TwilioAccountSID,
			authToken:  token,
			from:       c.FromNumber,
			client:     httpClient(f.cfg.Twilio.Timeout),
			breaker:    br,
		}, nil
	default:
		token, err := f.dec.Decrypt(c.ThinQAPIToken)
		if err != nil {
			return nil, credentialsUnreadable(err, meta)
		}
		return &ThinQ{
			baseURL:   f.cfg.ThinQ.BaseURL,
			accountID: c.ThinQAccountID,
			username:  c.ThinQAPIUsername,
			token:     token,
			from:      c.FromNumber,
			client:    httpClient(f.cfg.ThinQ.Timeout),
			breaker:   br,
		}, nil
	}
}

func (f *Factory) breaker(id int64, api APIConfig) *Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.breakers[id]
	if !ok {
		b = NewBreaker(api.FailThreshold, api.OpenFor)
		f.breakers[id] = b
	}
	return b
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func readReply(res *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(res.Body, maxReplyBytes))
}
