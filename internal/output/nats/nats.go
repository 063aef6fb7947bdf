// Package nats publishes classification records on a NATS subject.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/output"
)

// publisher is the part of *nats.Conn the output uses.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Options tunes the connection. Zero values pick defaults.
type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// Output publishes one JSON message per record.
type Output struct {
	conn    publisher
	subject string
}

// New connects to url.
func New(url, subject string, opts Options) (*Output, error) {
	if subject == "" {
		return nil, model.WrapError(model.ErrConfiguration, "nats.new", errors.New("subject is required"))
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := opts.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := opts.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("tagger"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Output{conn: conn, subject: subject}, nil
}

func (o *Output) Write(_ context.Context, rec model.Classification) error {
	data, err := output.Marshal(rec)
	if err != nil {
		return fmt.Errorf("nats output: %w", err)
	}
	if err := o.conn.Publish(o.subject, data); err != nil {
		return fmt.Errorf("nats output: publish %s: %w", rec.ID, err)
	}
	return nil
}

// Flush waits until the server has acknowledged everything published so far.
func (o *Output) Flush(ctx context.Context) error {
	if err := o.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats output: flush: %w", err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (o *Output) Close() error {
	if err := o.conn.Drain(); err != nil {
		return fmt.Errorf("nats output: drain: %w", err)
	}
	return nil
}
