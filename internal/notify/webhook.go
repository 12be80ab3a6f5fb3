package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"iinfinder/internal/autosearch"
	"iinfinder/internal/platform/metrics"
	"iinfinder/pkg/requestcontext"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier POSTs each match as JSON to the bot front end.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type WebhookOption func(*WebhookNotifier)

func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(n *WebhookNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func WithWebhookMetrics(m *metrics.Metrics) WebhookOption {
	return func(n *WebhookNotifier) {
		n.metrics = m
	}
}

func WithHTTPClient(c *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		n.client = c
	}
}

func NewWebhookNotifier(url string, timeout time.Duration, opts ...WebhookOption) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook url is required")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	n := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, match autosearch.Match) error {
	err := n.post(ctx, NewMessage(match, requestcontext.Now(ctx)))
	if err != nil {
		n.metrics.RecordNotification(DriverWebhook, "failed")
		return err
	}
	n.metrics.RecordNotification(DriverWebhook, "sent")
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send notification: unexpected status %d", resp.StatusCode)
	}
	n.logger.DebugContext(ctx, "notification delivered", "task_id", msg.TaskID, "owner_id", msg.OwnerID)
	return nil
}

func (n *WebhookNotifier) Close() error {
	n.client.CloseIdleConnections()
	return nil
}
