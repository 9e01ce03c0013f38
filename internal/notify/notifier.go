// Package notify delivers operational alerts to the admin channel.
// Delivery is best effort everywhere: a lost notification must never fail
// the work that produced it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier is the outbound notification collaborator
type Notifier interface {
	// CycleSummary reports the outcome counts of one update cycle
	CycleSummary(ctx context.Context, subject string, fields map[string]any)
	// Alert reports a single noteworthy condition
	Alert(ctx context.Context, subject, body string)
}

// Config configures the webhook notifier
type Config struct {
	Enabled    bool
	WebhookURL string
	APIKey     string
	FromEmail  string
	AdminEmail string
	Timeout    time.Duration
}

// WebhookNotifier posts JSON messages to a transactional delivery endpoint
type WebhookNotifier struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New creates a webhook notifier. With Enabled false every call is a no-op
// beyond a debug log line.
func New(cfg Config, logger zerolog.Logger) *WebhookNotifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// CycleSummary implements Notifier
func (n *WebhookNotifier) CycleSummary(ctx context.Context, subject string, fields map[string]any) {
	body, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to encode cycle summary")
		return
	}
	n.send(ctx, subject, string(body))
}

// Alert implements Notifier
func (n *WebhookNotifier) Alert(ctx context.Context, subject, body string) {
	n.send(ctx, subject, body)
}

func (n *WebhookNotifier) send(ctx context.Context, subject, body string) {
	if !n.cfg.Enabled {
		n.logger.Debug().Str("subject", subject).Msg("Notifications disabled, skipping")
		return
	}

	payload, err := json.Marshal(map[string]any{
		"from":    n.cfg.FromEmail,
		"to":      []string{n.cfg.AdminEmail},
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to encode notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("subject", subject).Msg("Notification delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn().
			Int("status", resp.StatusCode).
			Str("subject", subject).
			Msg("Notification endpoint rejected message")
		return
	}

	n.logger.Info().Str("subject", subject).Msg("Notification sent")
}

// Noop is a Notifier that discards everything; used in tests and when no
// channel is configured
type Noop struct{}

// CycleSummary implements Notifier
func (Noop) CycleSummary(context.Context, string, map[string]any) {}

// Alert implements Notifier
func (Noop) Alert(context.Context, string, string) {}

var _ Notifier = (*WebhookNotifier)(nil)
var _ Notifier = Noop{}

// FormatCents renders a cent amount as a dollar string for human-facing
// notification bodies
func FormatCents(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
