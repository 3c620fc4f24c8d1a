//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"kycgate/internal/platform/config"
	"kycgate/internal/platform/kafka/producer"
	"kycgate/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(config.KafkaConfig{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

// Produce returns only after the broker acknowledged the record, headers included.
func (s *ProducerIntegrationSuite) TestProduceDeliversRecordWithHeaders() {
	ctx := context.Background()
	topic := "test-produce-transitions"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic: topic,
		Key:   []byte("holder-1"),
		Value: []byte(`{"granted":true}`),
		Headers: map[string]string{
			"aggregate_type": "holder",
			"event_type":     "consent_granted",
		},
	})
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer(ctx, "test-produce-transitions-group", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "holder-1"
	})
	s.Require().NotNil(record)
	s.JSONEq(`{"granted":true}`, string(record.Value))

	headers := make(map[string]string)
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal("holder", headers["aggregate_type"])
	s.Equal("consent_granted", headers["event_type"])
}

func (s *ProducerIntegrationSuite) TestHealth() {
	s.NoError(s.producer.Health(context.Background()))
}
