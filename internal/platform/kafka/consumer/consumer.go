// Package consumer runs a franz-go consumer group loop with commit-after-handle semantics.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"youthsessions/internal/platform/kafka"
)

// Message is a received record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

type Handler interface {
	// Handle processes a message. A returned error leaves the offset uncommitted,
	// so the record is redelivered after a rebalance or restart.
	Handle(ctx context.Context, msg *Message) error
}

// Consumer polls one consumer group and hands each record to a Handler.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
	// AutoOffsetReset is "earliest" (default) or "latest".
	AutoOffsetReset string
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	brokers, err := kafka.SeedBrokers(cfg.Brokers)
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.GroupID == "":
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	case len(cfg.Topics) == 0:
		return nil, fmt.Errorf("kafka consumer has no topics")
	case handler == nil:
		return nil, fmt.Errorf("handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reset := kgo.NewOffset().AtStart()
	if cfg.AutoOffsetReset == "latest" {
		reset = kgo.NewOffset().AtEnd()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(reset),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is done, then leaves the group and closes the client.
// Records are handled one at a time in fetch order.
func (c *Consumer) Run(ctx context.Context) {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			c.handleRecord(ctx, r)
		})
	}
}

func (c *Consumer) handleRecord(ctx context.Context, r *kgo.Record) {
	msg := &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   make(map[string]string, len(r.Headers)),
		Timestamp: r.Timestamp,
	}
	for _, h := range r.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	attrs := []any{"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to handle message", append(attrs, "error", err)...)
		return
	}
	if err := c.client.CommitRecords(ctx, r); err != nil {
		c.logger.ErrorContext(ctx, "failed to commit offset", append(attrs, "error", err)...)
	}
}

// Ping checks that a broker answers. It is registered as a readiness check.
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
