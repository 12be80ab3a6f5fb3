package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"iinfinder/internal/autosearch"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
	pstrings "iinfinder/pkg/platform/strings"
	"iinfinder/pkg/requestcontext"
)

// KafkaNotifier produces one record per match, keyed by owner id so an
// owner's notifications stay ordered within a partition.
type KafkaNotifier struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type KafkaOption func(*KafkaNotifier)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(n *KafkaNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func WithKafkaMetrics(m *metrics.Metrics) KafkaOption {
	return func(n *KafkaNotifier) {
		n.metrics = m
	}
}

// NewKafkaNotifier connects to the brokers and, when configured, creates
// the topic if it does not exist.
func NewKafkaNotifier(ctx context.Context, cfg config.NotifyConfig, opts ...KafkaOption) (*KafkaNotifier, error) {
	brokers := pstrings.DedupeAndTrim(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(cfg.KafkaTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	n := &KafkaNotifier{client: client, topic: cfg.KafkaTopic, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}

	if cfg.KafkaCreateTopics {
		if err := ensureTopic(ctx, client, cfg); err != nil {
			client.Close()
			return nil, err
		}
	}
	return n, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, cfg config.NotifyConfig) error {
	partitions := cfg.KafkaPartitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.KafkaReplication
	if replication <= 0 {
		replication = 1
	}
	resp, err := kadm.NewClient(client).CreateTopics(ctx, partitions, replication, nil, cfg.KafkaTopic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.KafkaTopic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, match autosearch.Match) error {
	payload, err := json.Marshal(NewMessage(match, requestcontext.Now(ctx)))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(strconv.FormatInt(int64(match.Task.Owner.ID), 10)),
		Value: payload,
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		n.metrics.RecordNotification(DriverKafka, "failed")
		return fmt.Errorf("produce notification: %w", err)
	}
	n.metrics.RecordNotification(DriverKafka, "sent")
	n.logger.DebugContext(ctx, "notification produced",
		"topic", n.topic,
		"partition", record.Partition,
		"offset", record.Offset,
	)
	return nil
}

func (n *KafkaNotifier) Close() error {
	n.client.Close()
	return nil
}
