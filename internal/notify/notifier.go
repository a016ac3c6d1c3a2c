// Package notify delivers best-effort messages to site staff. Delivery
// failures are reported to the caller for logging and never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	ChannelLog     = "log"
	ChannelWebhook = "webhook"

	responseReadLimit int64 = 1024
	defaultTimeout          = 5 * time.Second
)

var errWebhookURLRequired = errors.New("notify webhook url is required")

// Notifier sends one message to one recipient reference (phone, email or
// chat handle).
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, recipient, message string) error {
	log.Info().
		Str("recipient", recipient).
		Str("message", message).
		Msg("notify: message")
	return nil
}

// WebhookNotifier posts messages as JSON to a chat gateway.
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
}

type Option func(*WebhookNotifier)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.httpClient = client
		}
	}
}

func NewWebhookNotifier(url string, timeout time.Duration, opts ...Option) (*WebhookNotifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errWebhookURLRequired
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	n := &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n, nil
}

type webhookPayload struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

func (n *WebhookNotifier) Send(ctx context.Context, recipient, message string) error {
	payload, err := json.Marshal(webhookPayload{Recipient: recipient, Text: message})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// New picks the notifier named by cfg.Channel, falling back to the log.
func New(cfg config.NotifyConfig) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Channel)) {
	case ChannelWebhook:
		return NewWebhookNotifier(cfg.WebhookURL, time.Duration(cfg.TimeoutSec)*time.Second)
	case "", ChannelLog:
		return NewLogNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notify channel %q", cfg.Channel)
	}
}
