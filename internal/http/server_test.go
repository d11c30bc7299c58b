package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmehdipour/wctp-gateway/internal/config"
	"github.com/jmehdipour/wctp-gateway/internal/wctp"
	"github.com/redis/go-redis/v9"
)

type fakeSubmitter struct {
	fault *wctp.Fault
	body  []byte
}

func (f *fakeSubmitter) Submit(_ context.Context, body []byte) *wctp.Fault {
	f.body = body
	return f.fault
}

func postWCTP(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/wctp", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out, _ := io.ReadAll(rec.Body)
	return rec, string(out)
}

func TestInbound_Success(t *testing.T) {
	svc := &fakeSubmitter{}
	srv := NewServer(config.Config{}, svc, nil)

	rec, body := postWCTP(t, srv.Handler(), "<wctp-Operation/>")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("expected text/xml, got %q", ct)
	}
	if !strings.Contains(body, `successCode="200"`) || !strings.Contains(body, "Message queued for delivery") {
		t.Fatalf("unexpected body %s", body)
	}
	if string(svc.body) != "<wctp-Operation/>" {
		t.Fatalf("handler must pass the raw body, got %q", svc.body)
	}
}

func TestInbound_FaultIsStill200(t *testing.T) {
	srv := NewServer(config.Config{}, &fakeSubmitter{fault: wctp.FaultUnknownSender}, nil)

	rec, body := postWCTP(t, srv.Handler(), "<x/>")
	if rec.Code != http.StatusOK {
		t.Fatalf("faults must be delivered with 200, got %d", rec.Code)
	}
	want := `<wctp-Failure errorCode="401" errorText="Invalid senderID">senderID does not live on this system</wctp-Failure>`
	if !strings.Contains(body, want) {
		t.Fatalf("body %s does not contain %s", body, want)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(config.Config{}, &fakeSubmitter{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz %d %q", rec.Code, rec.Body.String())
	}
}

func TestInbound_RateLimitedGetsProtocolFault(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.Config{}
	cfg.RateLimit.RPS = 1
	svc := &fakeSubmitter{}
	srv := NewServer(cfg, svc, rdb)

	limited := 0
	for i := 0; i < 3; i++ {
		rec, body := postWCTP(t, srv.Handler(), "<x/>")
		if rec.Code != http.StatusOK {
			t.Fatalf("every /wctp reply must be 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
			t.Fatalf("expected text/xml, got %q", ct)
		}
		if strings.Contains(body, `errorCode="606"`) {
			limited++
		}
	}
	// three requests may straddle a one-second window boundary
	if limited == 0 {
		t.Fatalf("expected at least one throttled submission")
	}
}
