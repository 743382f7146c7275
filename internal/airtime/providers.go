package airtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qatalysthq/qatalyst-backend/pkg/config"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

// NewProviderChain builds the configured provider list in failover order. The
// log provider always terminates the chain so a misconfigured gateway degrades
// to a visible no-op instead of a hard failure.
func NewProviderChain(cfg config.AirtimeConfig, logg *logger.Logger) []Provider {
	var chain []Provider
	switch cfg.Provider {
	case "africastalking":
		chain = append(chain, newATProvider(cfg))
	case "", "log":
		// log-only below
	default:
		// Unknown kinds degrade to log-only.
	}
	chain = append(chain, logProvider{logg: logg})
	return chain
}

type atProvider struct {
	baseURL  string
	username string
	apiKey   string
	client   *http.Client
}

func newATProvider(cfg config.AirtimeConfig) *atProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &atProvider{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *atProvider) Name() string { return "africastalking" }

type atResponse struct {
	ErrorMessage string `json:"errorMessage"`
	Responses    []struct {
		Status       string `json:"status"`
		RequestID    string `json:"requestId"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"responses"`
}

func (p *atProvider) SendAirtime(ctx context.Context, msisdn string, amountNGN int) (string, error) {
	form := url.Values{}
	form.Set("username", p.username)
	form.Set("recipients", fmt.Sprintf(`[{"phoneNumber":%q,"amount":"NGN %d"}]`, msisdn, amountNGN))
	return p.post(ctx, "/version1/airtime/send", form)
}

func (p *atProvider) SendBundle(ctx context.Context, msisdn string, bundle Bundle) (string, error) {
	form := url.Values{}
	form.Set("username", p.username)
	form.Set("productName", "data")
	form.Set("recipients", fmt.Sprintf(`[{"phoneNumber":%q,"currencyCode":"NGN","amount":"%d"}]`, msisdn, bundle.AmountNGN))
	return p.post(ctx, "/mobile/data/request", form)
}

func (p *atProvider) post(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var parsed atResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding gateway response: %w", err)
	}

	// The gateway reports "None" when there is no error.
	if len(parsed.Responses) > 0 {
		entry := parsed.Responses[0]
		if entry.Status == "Sent" || entry.Status == "Success" || entry.Status == "Submitted" {
			return entry.RequestID, nil
		}
		if entry.ErrorMessage != "" && entry.ErrorMessage != "None" {
			return "", fmt.Errorf("gateway rejected request: %s", entry.ErrorMessage)
		}
	}
	if parsed.ErrorMessage != "" && parsed.ErrorMessage != "None" {
		return "", fmt.Errorf("gateway rejected request: %s", parsed.ErrorMessage)
	}
	return "", fmt.Errorf("gateway returned no dispatch entry")
}

// logProvider records the purchase and succeeds. It is the terminal fallback
// and the default in development.
type logProvider struct {
	logg *logger.Logger
}

func (p logProvider) Name() string { return "log" }

func (p logProvider) SendAirtime(ctx context.Context, msisdn string, amountNGN int) (string, error) {
	if p.logg != nil {
		logCtx := p.logg.WithPhone(ctx, phone.Mask(msisdn))
		logCtx = p.logg.WithField(logCtx, "amount_ngn", amountNGN)
		p.logg.Info(logCtx, "airtime purchase (log provider)")
	}
	return fmt.Sprintf("TXN-%d", time.Now().UnixMilli()), nil
}

func (p logProvider) SendBundle(ctx context.Context, msisdn string, bundle Bundle) (string, error) {
	if p.logg != nil {
		logCtx := p.logg.WithPhone(ctx, phone.Mask(msisdn))
		logCtx = p.logg.WithField(logCtx, "bundle", bundle.Size)
		p.logg.Info(logCtx, "data purchase (log provider)")
	}
	return fmt.Sprintf("NGDATATXN-%d", time.Now().UnixMilli()), nil
}
