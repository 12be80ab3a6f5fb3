// Package notify delivers auto-search matches to their owners through a
// log line, a webhook consumed by the bot front end, or a Kafka topic.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"iinfinder/internal/autosearch"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
)

const (
	DriverLog     = "log"
	DriverWebhook = "webhook"
	DriverKafka   = "kafka"
)

// Message is the payload every driver emits.
type Message struct {
	TaskID    string    `json:"task_id"`
	OwnerID   int64     `json:"owner_id"`
	OwnerNick string    `json:"owner_nick,omitempty"`
	BirthDate string    `json:"birth_date"`
	Name      string    `json:"name"`
	Found     []Found   `json:"found"`
	SentAt    time.Time `json:"sent_at"`
}

type Found struct {
	IIN      string `json:"iin"`
	FullName string `json:"full_name"`
}

// NewMessage renders a match.
func NewMessage(match autosearch.Match, now time.Time) Message {
	msg := Message{
		TaskID:    match.Task.ID.String(),
		OwnerID:   int64(match.Task.Owner.ID),
		OwnerNick: match.Task.Owner.Nick,
		BirthDate: match.Task.BirthDate.Format(time.DateOnly),
		Name:      match.Task.Name,
		Found:     make([]Found, 0, len(match.Found)),
		SentAt:    now.UTC(),
	}
	for _, r := range match.Found {
		msg.Found = append(msg.Found, Found{IIN: r.ID.String(), FullName: r.FullName()})
	}
	return msg
}

// Notifier is an autosearch.Notifier that can release its resources.
type Notifier interface {
	autosearch.Notifier
	Close() error
}

// New builds the notifier selected by cfg.Driver.
func New(ctx context.Context, cfg config.NotifyConfig, logger *slog.Logger, m *metrics.Metrics) (Notifier, error) {
	switch cfg.Driver {
	case DriverLog, "":
		return NewLogNotifier(logger, m), nil
	case DriverWebhook:
		n, err := NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout, WithWebhookLogger(logger), WithWebhookMetrics(m))
		if err != nil {
			return nil, err
		}
		return n, nil
	case DriverKafka:
		n, err := NewKafkaNotifier(ctx, cfg, WithKafkaLogger(logger), WithKafkaMetrics(m))
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}
