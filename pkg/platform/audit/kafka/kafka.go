// Package kafka ships audit events to a Kafka topic for downstream retention
// and analytics. The field devices themselves never talk to Kafka; this sink
// runs on the regional relay where broker connectivity is expected.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "enrolld/pkg/platform/audit"
)

// Sink publishes audit events to a Kafka topic. Records are keyed by
// surveyor ID so a surveyor's trail stays ordered within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

func NewSink(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.SurveyorID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListBySurveyor is not supported on the Kafka sink; reads happen from the
// downstream consumer, not the producer side.
func (s *Sink) ListBySurveyor(context.Context, string) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka sink is write-only")
}

func (s *Sink) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka sink is write-only")
}

func (s *Sink) Close() {
	s.client.Close()
}
