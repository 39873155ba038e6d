package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notifier delivers operator-facing alerts. Implementations must not block
// the caller beyond their own request timeout.
type Notifier interface {
	Notify(ctx context.Context, severity, title, body string) error
}

// WebhookNotifier posts alerts as JSON to a configured webhook URL.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewWebhookNotifier(url string, logger *logrus.Logger) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("alerts: webhook URL is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

type webhookPayload struct {
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, severity, title, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Severity:  severity,
		Title:     title,
		Body:      body,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("alerts: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("alerts: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alerts: webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alerts: webhook returned status %d", resp.StatusCode)
	}

	w.logger.WithFields(logrus.Fields{
		"severity": severity,
		"title":    title,
	}).Debug("alert delivered")

	return nil
}

// LogNotifier writes alerts to the structured log. Used when no webhook is
// configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, severity, title, body string) error {
	entry := l.logger.WithFields(logrus.Fields{
		"severity": severity,
		"title":    title,
	})
	switch severity {
	case SeverityCritical:
		entry.Error(body)
	case SeverityWarning:
		entry.Warn(body)
	default:
		entry.Info(body)
	}
	return nil
}
