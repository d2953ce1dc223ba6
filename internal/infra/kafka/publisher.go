package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"metalwatch-service/internal/domain"
)

// Event types carried in the "type" header.
const (
	EventSampleRecorded = "sample.recorded"
	EventAttemptScored  = "quiz.scored"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes domain events to Kafka. Samples are keyed by location and
// attempts by subject so each key stays on one partition.
type Publisher struct {
	samples  messageWriter
	attempts messageWriter
}

func NewPublisher(brokers []string, samplesTopic, attemptsTopic string) *Publisher {
	return &Publisher{
		samples:  newWriter(brokers, samplesTopic),
		attempts: newWriter(brokers, attemptsTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (p *Publisher) PublishSample(ctx context.Context, event domain.SampleRecorded) error {
	msg, err := encode(EventSampleRecorded, event.Sample.Location, event)
	if err != nil {
		return err
	}
	if err := p.samples.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write sample event: %w", err)
	}
	return nil
}

func (p *Publisher) PublishAttempt(ctx context.Context, event domain.AttemptScored) error {
	msg, err := encode(EventAttemptScored, event.Subject, event)
	if err != nil {
		return err
	}
	if err := p.attempts.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write attempt event: %w", err)
	}
	return nil
}

// Close closes both writers.
func (p *Publisher) Close() error {
	errSamples := p.samples.Close()
	errAttempts := p.attempts.Close()
	if errSamples != nil {
		return errSamples
	}
	return errAttempts
}

func encode(eventType, key string, payload any) (kafka.Message, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(eventType)}},
	}, nil
}
