package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/segmentio/kafka-go"
)

// SummaryEvent is one published rollup. CustomerID is empty for the
// whole-ledger event.
type SummaryEvent struct {
	Scope       string         `json:"scope"`
	CustomerID  string         `json:"customer_id,omitempty"`
	AsOf        time.Time      `json:"as_of"`
	Summary     ledger.Summary `json:"summary"`
	UnpaidTotal string         `json:"unpaid_total"`
	PaidTotal   string         `json:"paid_total"`
}

func newEvent(scope, customerID string, s ledger.Summary, asOf time.Time) SummaryEvent {
	s = s.Rounded()
	return SummaryEvent{
		Scope:       scope,
		CustomerID:  customerID,
		AsOf:        asOf,
		Summary:     s,
		UnpaidTotal: s.UnpaidTotal().StringFixed(2),
		PaidTotal:   s.PaidTotal().StringFixed(2),
	}
}

type Publisher interface {
	Publish(ctx context.Context, events []SummaryEvent) error
	Close() error
}

// KafkaPublisher writes summary events to a Kafka topic, keyed by customer.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []SummaryEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", ev.Scope, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Scope + ":" + ev.CustomerID),
			Value: data,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d summary events: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
