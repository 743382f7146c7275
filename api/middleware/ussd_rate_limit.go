package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qatalysthq/qatalyst-backend/api/responses"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

const (
	rateLimitedReply    = "END Too many requests. Please wait a moment and dial again."
	unreadableBodyReply = "END Invalid request: malformed payload"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// USSDRateLimitPolicy throttles gateway callbacks per subscriber.
type USSDRateLimitPolicy struct {
	Window time.Duration
	Limit  int
}

func (p USSDRateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// USSDRateLimit enforces a fixed window per hashed phone number on the
// gateway callback. Blocked requests get a terminal END reply with status
// 200, since the gateway drops the session on any other status. Redis being down
// fails open: the callback is served without throttling.
func USSDRateLimit(policy USSDRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				// An unreadable body is a transport problem, not throttling.
				if logg != nil {
					logg.Error(ctx, "ussd.rate_limit.body_read_failed", err)
				}
				responses.WriteUSSD(w, unreadableBodyReply)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			rawPhone := extractPhoneNumber(r.Header.Get("Content-Type"), body)
			if rawPhone == "" {
				// Nothing to key on; the controller rejects the request.
				next.ServeHTTP(w, r)
				return
			}

			key := store.RateLimitKey("ussd:" + phone.Hash(rawPhone))
			count, err := store.IncrWithTTL(ctx, key, policy.Window)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "ussd.rate_limit.store_failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(policy.Limit) {
				if logg != nil {
					logCtx := logg.WithPhone(ctx, phone.Mask(rawPhone))
					logCtx = logg.WithFields(logCtx, map[string]any{
						"security_event": true,
						"attempts":       count,
						"limit":          policy.Limit,
						"window_seconds": int(policy.Window.Seconds()),
					})
					logg.Warn(logCtx, "ussd.rate_limit.blocked")
				}
				responses.WriteUSSD(w, rateLimitedReply)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractPhoneNumber(contentType string, body []byte) string {
	if strings.HasPrefix(contentType, "application/json") {
		var payload struct {
			PhoneNumber string `json:"phoneNumber"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		return strings.TrimSpace(payload.PhoneNumber)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values.Get("phoneNumber"))
}
