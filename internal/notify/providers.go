package notify

import (
	"bytes"
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

// Provider delivers one SMS. Errors are treated as provider failures; the
// dispatcher falls through to the next provider in the chain.
type Provider interface {
	Name() string
	Send(ctx context.Context, msisdn, message string) error
}

// NewProviderChain builds the configured failover order. The log provider
// always terminates the chain.
func NewProviderChain(cfg config.SMSConfig, logg *logger.Logger) []Provider {
	var chain []Provider
	switch cfg.Provider {
	case "africastalking":
		chain = append(chain, newATProvider(cfg))
		if cfg.WebhookURL != "" {
			chain = append(chain, webhookProvider{url: cfg.WebhookURL, timeout: cfg.Timeout})
		}
	case "webhook":
		if cfg.WebhookURL != "" {
			chain = append(chain, webhookProvider{url: cfg.WebhookURL, timeout: cfg.Timeout})
		}
	case "", "log":
		// log-only below
	}
	chain = append(chain, logProvider{logg: logg})
	return chain
}

type atProvider struct {
	baseURL  string
	username string
	apiKey   string
	senderID string
	client   *http.Client
}

func newATProvider(cfg config.SMSConfig) *atProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &atProvider{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *atProvider) Name() string { return "africastalking" }

func (p *atProvider) Send(ctx context.Context, msisdn, message string) error {
	form := url.Values{}
	form.Set("username", p.username)
	form.Set("to", msisdn)
	form.Set("message", message)
	if p.senderID != "" {
		form.Set("from", p.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var parsed struct {
		SMSMessageData struct {
			Recipients []struct {
				Status string `json:"status"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decoding gateway response: %w", err)
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return fmt.Errorf("gateway accepted no recipients")
	}
	if status := parsed.SMSMessageData.Recipients[0].Status; status != "Success" {
		return fmt.Errorf("gateway recipient status %q", status)
	}
	return nil
}

type webhookProvider struct {
	url     string
	timeout time.Duration
}

func (p webhookProvider) Name() string { return "webhook" }

func (p webhookProvider) Send(ctx context.Context, msisdn, message string) error {
	payload, err := json.Marshal(map[string]string{
		"channel":   "sms",
		"recipient": msisdn,
		"message":   message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	timeout := p.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// logProvider records the message and succeeds. Default in development.
type logProvider struct {
	logg *logger.Logger
}

func (p logProvider) Name() string { return "log" }

func (p logProvider) Send(ctx context.Context, msisdn, message string) error {
	if p.logg != nil {
		logCtx := p.logg.WithPhone(ctx, phone.Mask(msisdn))
		p.logg.Info(logCtx, fmt.Sprintf("sms (log provider): %s", message))
	}
	return nil
}
