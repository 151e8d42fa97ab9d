// Package kafkasink publishes escalation records to a Kafka topic so other
// systems (ticketing, paging) can pick them up.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

// EventType marks escalation events on the topic.
const EventType = "ticket.escalated"

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "helpdesk.escalations"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON value written for each escalation.
type Event struct {
	Type   string                   `json:"type"`
	Record *ticket.EscalationRecord `json:"record"`
}

// Sink writes one message per escalation, keyed by ticket ID.
type Sink struct {
	w messageWriter
}

// New creates a Sink publishing to topic on brokers.
func New(brokers []string, topic string) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Sink{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Record implements ticket.EscalationSink.
func (s *Sink) Record(ctx context.Context, rec *ticket.EscalationRecord) error {
	msg, err := buildMessage(rec)
	if err != nil {
		return err
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkasink: write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *Sink) Close() error {
	return s.w.Close()
}

func buildMessage(rec *ticket.EscalationRecord) (kafka.Message, error) {
	data, err := json.Marshal(Event{Type: EventType, Record: rec})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkasink: marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(rec.TicketID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(EventType)},
		},
		Time: rec.Timestamp,
	}, nil
}
