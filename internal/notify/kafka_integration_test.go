//go:build integration

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"iinfinder/internal/notify"
	"iinfinder/internal/platform/config"
	"iinfinder/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSuite) TestProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "iinfinder.test.matches"

	n, err := notify.NewKafkaNotifier(ctx, config.NotifyConfig{
		KafkaBrokers:      s.redpanda.Brokers,
		KafkaTopic:        topic,
		KafkaPartitions:   1,
		KafkaReplication:  1,
		KafkaCreateTopics: true,
	})
	s.Require().NoError(err)
	defer n.Close()

	s.Require().NoError(n.Notify(ctx, sampleMatch()))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("4242", string(records[0].Key))

	var msg notify.Message
	s.Require().NoError(json.Unmarshal(records[0].Value, &msg))
	s.Equal("830118050359", msg.Found[0].IIN)
}
