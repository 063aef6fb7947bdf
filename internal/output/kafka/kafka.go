// Package kafka publishes classification records to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/output"
)

// messageWriter is the part of *kafka.Writer the output uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Output writes one message per record, keyed by record ID so a record's
// retries land on the same partition.
type Output struct {
	writer messageWriter
}

// New creates a hash-balanced writer for topic.
func New(brokers []string, topic string) (*Output, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, model.WrapError(model.ErrConfiguration, "kafka.new",
			errors.New("brokers and topic are required"))
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              100,
		BatchTimeout:           200 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			slog.Warn("kafka writer", "detail", fmt.Sprintf(msg, args...))
		}),
	}
	return &Output{writer: w}, nil
}

func (o *Output) Write(ctx context.Context, rec model.Classification) error {
	value, err := output.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kafka output: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.ID),
		Value: value,
		Time:  rec.Timestamp,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := o.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka output: write %s: %w", rec.ID, err)
	}
	return nil
}

func (o *Output) Close() error {
	if err := o.writer.Close(); err != nil {
		return fmt.Errorf("kafka output: close: %w", err)
	}
	return nil
}
