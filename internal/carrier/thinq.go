package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/util"
)

// ThinQ speaks the origination SMS API.
type ThinQ struct {
	baseURL   string
	accountID string
	username  string
	token     string
	from      string
	client    *http.Client
	breaker   *Breaker
}

type thinqNotification struct {
	SendStatus string `json:"send_status"`
	Timestamp  string `json:"timestamp"`
}

type thinqStatusReply struct {
	DeliveryNotifications []thinqNotification `json:"delivery_notifications"`
}

type thinqSendRequest struct {
	FromDID string `json:"from_did"`
	ToDID   string `json:"to_did"`
	Text    string `json:"text"`
}

type thinqSendReply struct {
	GUID string `json:"guid"`
}

var thinqTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (q *ThinQ) smsURL() string {
	return fmt.Sprintf("%s/account/%s/product/origination/sms",
		strings.TrimRight(q.baseURL, "/"), url.PathEscape(q.accountID))
}

func (q *ThinQ) QueryStatus(ctx context.Context, uid string) (Verdict, error) {
	meta := map[string]any{"carrier_message_uid": uid, "api": "thinq"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.smsURL()+"/"+url.PathEscape(uid), nil)
	if err != nil {
		return Verdict{}, unavailable(err, "build thinq status request", meta)
	}
	req.SetBasicAuth(q.username, q.token)

	var reply thinqStatusReply
	if err := q.do(req, meta, &reply); err != nil {
		return Verdict{}, err
	}
	if len(reply.DeliveryNotifications) == 0 {
		return Verdict{}, noNotifications(meta)
	}
	return foldNotifications(reply.DeliveryNotifications), nil
}

// foldNotifications skips statuses without a verdict. If every recognized
// notification has a parsable timestamp the latest wins, otherwise the last
// one in reply order wins. Nothing recognized leaves the message in flight.
func foldNotifications(ns []thinqNotification) Verdict {
	recognized := make([]Verdict, 0, len(ns))
	allTimed := true
	for _, n := range ns {
		outcome, ok := thinqOutcome(n.SendStatus)
		if !ok {
			continue
		}
		v := Verdict{Status: n.SendStatus, Outcome: outcome}
		if ts, ok := parseThinQTimestamp(n.Timestamp); ok {
			v.At = ts
		} else {
			allTimed = false
		}
		recognized = append(recognized, v)
	}

	if len(recognized) == 0 {
		return Verdict{Outcome: model.OutcomeInFlight}
	}
	if !allTimed {
		return recognized[len(recognized)-1]
	}

	best := recognized[0]
	for _, v := range recognized[1:] {
		if !v.At.Before(best.At) {
			best = v
		}
	}
	return best
}

func parseThinQTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range thinqTimestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (q *ThinQ) Send(ctx context.Context, to, body string) (Receipt, error) {
	meta := map[string]any{"api": "thinq"}

	payload, err := json.Marshal(thinqSendRequest{
		FromDID: util.NationalNumber(q.from),
		ToDID:   util.NationalNumber(to),
		Text:    body,
	})
	if err != nil {
		return Receipt{}, unavailable(err, "encode thinq send request", meta)
	}

	var rcpt Receipt
	err = q.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.smsURL()+"/send", bytes.NewReader(payload))
		if err != nil {
			return unavailable(err, "build thinq send request", meta)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(q.username, q.token)

		var reply thinqSendReply
		if err := q.do(req, meta, &reply); err != nil {
			return err
		}
		if reply.GUID == "" {
			return unavailable(nil, "thinq send reply has no guid", meta)
		}
		rcpt = Receipt{UID: reply.GUID, Status: "sent"}
		return nil
	})
	if errors.Is(err, ErrBreakerOpen) {
		return Receipt{}, unavailable(err, "thinq circuit open", meta)
	}
	return rcpt, err
}

func (q *ThinQ) do(req *http.Request, meta map[string]any, out any) error {
	res, err := q.client.Do(req)
	if err != nil {
		return unavailable(err, "thinq request failed", meta)
	}
	defer res.Body.Close()

	raw, err := readReply(res)
	if err != nil {
		return unavailable(err, "read thinq reply", meta)
	}
	if res.StatusCode != http.StatusOK {
		return unavailable(fmt.Errorf("thinq status=%d", res.StatusCode), "thinq rejected request", meta)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unavailable(err, "decode thinq reply", meta)
	}
	return nil
}
