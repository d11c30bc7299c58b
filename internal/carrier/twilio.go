package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/jmehdipour/wctp-gateway/internal/util"
)

// Twilio speaks the 2010-04-01 Messages REST API.
type Twilio struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
	breaker    *Breaker
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

func (t *Twilio) messagesURL() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages",
		strings.TrimRight(t.baseURL, "/"), url.PathEscape(t.accountSID))
}

func (t *Twilio) QueryStatus(ctx context.Context, uid string) (Verdict, error) {
	meta := map[string]any{"carrier_message_uid": uid, "api": "twilio"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.messagesURL()+"/"+url.PathEscape(uid)+".json", nil)
	if err != nil {
		return Verdict{}, unavailable(err, "build twilio status request", meta)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)

	msg, err := t.do(req, meta, http.StatusOK)
	if err != nil {
		return Verdict{}, err
	}
	if msg.Status == "" {
		return Verdict{}, unavailable(nil, "twilio status reply has no status", meta)
	}
	return Verdict{Status: msg.Status, Outcome: twilioOutcome(msg.Status)}, nil
}

func (t *Twilio) Send(ctx context.Context, to, body string) (Receipt, error) {
	meta := map[string]any{"api": "twilio"}

	form := url.Values{}
	form.Set("To", util.NormalizePhone(to))
	form.Set("From", util.NormalizePhone(t.from))
	form.Set("Body", body)

	var rcpt Receipt
	err := t.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.messagesURL()+".json", strings.NewReader(form.Encode()))
		if err != nil {
			return unavailable(err, "build twilio send request", meta)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(t.accountSID, t.authToken)

		msg, err := t.do(req, meta, http.StatusCreated, http.StatusOK)
		if err != nil {
			return err
		}
		if msg.SID == "" {
			return unavailable(nil, "twilio send reply has no sid", meta)
		}
		rcpt = Receipt{UID: msg.SID, Status: msg.Status}
		return nil
	})
	if errors.Is(err, ErrBreakerOpen) {
		return Receipt{}, unavailable(err, "twilio circuit open", meta)
	}
	return rcpt, err
}

func (t *Twilio) do(req *http.Request, meta map[string]any, accept ...int) (twilioMessage, error) {
	res, err := t.client.Do(req)
	if err != nil {
		return twilioMessage{}, unavailable(err, "twilio request failed", meta)
	}
	defer res.Body.Close()

	raw, err := readReply(res)
	if err != nil {
		return twilioMessage{}, unavailable(err, "read twilio reply", meta)
	}
	if !slices.Contains(accept, res.StatusCode) {
		return twilioMessage{}, unavailable(fmt.Errorf("twilio status=%d", res.StatusCode), "twilio rejected request", meta)
	}

	var msg twilioMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return twilioMessage{}, unavailable(err, "decode twilio reply", meta)
	}
	return msg, nil
}
