package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrInvalidWebhookURL is returned for targets that are not http(s) URLs.
	ErrInvalidWebhookURL = errors.New("invalid webhook URL")
	// ErrWebhookRejected is returned when the endpoint responds outside 2xx.
	ErrWebhookRejected = errors.New("webhook endpoint rejected delivery")
)

// webhookPayload is the JSON body posted to webhook targets.
type webhookPayload struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// WebhookSender posts notification payloads to user-configured HTTP
// endpoints. A single Send makes exactly one attempt; the delivery
// engine owns the retry schedule.
type WebhookSender struct {
	client *http.Client
}

// WebhookOption configures a WebhookSender.
type WebhookOption func(*WebhookSender)

// WithHTTPClient replaces the default HTTP client, used for custom
// transports and testing.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSender) {
		if client != nil {
			s.client = client
		}
	}
}

// NewWebhookSender creates a webhook sender with connection pooling
// tuned for repeated deliveries to a small set of endpoints.
func NewWebhookSender(opts ...WebhookOption) *WebhookSender {
	s := &WebhookSender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send posts the message as JSON to the target URL.
// Only http and https schemes are accepted to prevent SSRF via
// user-supplied targets.
func (s *WebhookSender) Send(ctx context.Context, target, title, body string) (bool, error) {
	if target == "" {
		return false, ErrEmptyTarget
	}

	u, err := url.Parse(target)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidWebhookURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidWebhookURL)
	}
	if u.Host == "" {
		return false, fmt.Errorf("%w: host is required", ErrInvalidWebhookURL)
	}

	payload, err := json.Marshal(webhookPayload{
		Title:  title,
		Body:   body,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "notify-webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	}

	return true, nil
}
