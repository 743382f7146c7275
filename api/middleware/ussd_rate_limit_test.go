package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: make(map[string]int64)}
}

func (s *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeRateStore) RateLimitKey(scope string) string {
	return "qt:ratelimit:" + scope
}

func callbackRequest(phone string) *http.Request {
	body := "sessionId=AT1&phoneNumber=" + phone + "&text="
	req := httptest.NewRequest(http.MethodPost, "/ussd/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestUSSDRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := USSDRateLimitPolicy{Window: 5 * time.Second, Limit: 1}
	handler := USSDRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("CON ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, callbackRequest("%2B254711223344"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "CON ok" {
		t.Fatalf("handler must run under the limit, got %q", got)
	}
}

func TestUSSDRateLimit_BlocksWithTerminalReply(t *testing.T) {
	store := newFakeRateStore()
	policy := USSDRateLimitPolicy{Window: 5 * time.Second, Limit: 1}
	handler := USSDRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("CON ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, callbackRequest("%2B254711223344"))
	if rec.Body.String() != "CON ok" {
		t.Fatalf("first request must pass, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, callbackRequest("%2B254711223344"))

	// Blocked replies still use the gateway wire format: 200 + END.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on blocked request, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "END ") {
		t.Fatalf("expected terminal reply, got %q", rec.Body.String())
	}

	// A different subscriber is counted separately.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, callbackRequest("%2B254799887766"))
	if rec.Body.String() != "CON ok" {
		t.Fatalf("other subscriber must pass, got %q", rec.Body.String())
	}
}

func TestUSSDRateLimit_FailsOpenOnStoreError(t *testing.T) {
	store := newFakeRateStore()
	store.err = context.DeadlineExceeded
	policy := USSDRateLimitPolicy{Window: 5 * time.Second, Limit: 1}
	handler := USSDRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("CON ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, callbackRequest("%2B254711223344"))

	if rec.Body.String() != "CON ok" {
		t.Fatalf("store failure must fail open, got %q", rec.Body.String())
	}
}

func TestUSSDRateLimit_BodyRestoredForHandler(t *testing.T) {
	store := newFakeRateStore()
	policy := USSDRateLimitPolicy{Window: 5 * time.Second, Limit: 5}
	var seen string
	handler := USSDRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		seen = r.PostFormValue("phoneNumber")
		w.Write([]byte("CON ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, callbackRequest("%2B254711223344"))

	if seen != "+254711223344" {
		t.Fatalf("handler must still see the body, got %q", seen)
	}
}

type brokenBody struct{}

func (brokenBody) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestUSSDRateLimit_UnreadableBodyIsNotThrottling(t *testing.T) {
	store := newFakeRateStore()
	policy := USSDRateLimitPolicy{Window: 5 * time.Second, Limit: 1}
	handler := USSDRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on an unreadable body")
	}))

	req := httptest.NewRequest(http.MethodPost, "/ussd/callback", brokenBody{})
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("gateway responses are always 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "END Invalid request: malformed payload" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if len(store.counts) != 0 {
		t.Fatalf("no counter should be touched, got %v", store.counts)
	}
}
