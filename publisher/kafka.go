package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guild-chat/domain"
	"guild-chat/domain/envelope"

	k "github.com/segmentio/kafka-go"
)

// MessageWriter is the part of the kafka writer used to publish.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...k.Message) error
	Close() error
}

// Publisher forwards every relayed message to a kafka topic, keyed by sender.
type Publisher struct {
	writer MessageWriter
	log    *slog.Logger
}

func NewPublisher(writer MessageWriter, log *slog.Logger) *Publisher {
	return &Publisher{writer: writer, log: log}
}

// NewKafkaWriter accepts a comma separated list of brokers.
func NewKafkaWriter(brokers, topic string) *k.Writer {
	return &k.Writer{
		Addr:         k.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &k.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: k.RequireOne,
	}
}

func (p *Publisher) Publish(ctx context.Context, msg domain.Message) error {
	value, err := json.Marshal(envelope.FromMessage(msg))
	if err != nil {
		return err
	}
	if err = p.writer.WriteMessages(ctx, k.Message{
		Key:   []byte(msg.SenderID),
		Value: value,
		Time:  msg.CreatedAt,
	}); err != nil {
		return fmt.Errorf("publish message %s: %w", msg.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
