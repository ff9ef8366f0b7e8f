// Package kafka adapts the partitioned game-events log to the domain
// EventSource and publisher contracts using consumer groups with
// explicit, engine-controlled commits.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// ConsumerConfig holds the settings for a group consumer.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// Consumer implements domain.EventSource over a kafka-go group reader.
// Auto-commit is disabled: offsets advance only through
// CommitCheckpoints. New groups start from the earliest offset so
// unconsumed history is never skipped on first run.
type Consumer struct {
	reader *kafka.Reader
	topic  string
	poll   time.Duration
	logger *slog.Logger
}

// NewConsumer creates a consumer bound to one consumer-group identity.
// Partition assignment within the group is the broker's concern.
func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		// CommitInterval zero keeps commits synchronous and explicit.
	})
	return &Consumer{
		reader: reader,
		topic:  cfg.Topic,
		poll:   poll,
		logger: logger.With("component", "kafka_consumer"),
	}
}

// FetchBatch blocks up to the poll timeout for the next batch of at most
// max records, in delivery order. An empty batch is returned when the
// timeout elapses with nothing fetched; that is not an error.
func (c *Consumer) FetchBatch(ctx context.Context, max int) ([]domain.Record, error) {
	deadline := time.Now().Add(c.poll)
	records := make([]domain.Record, 0, max)

	for len(records) < max {
		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				// Shutdown mid-poll: hand back whatever was fetched so
				// the in-flight batch still gets processed and committed.
				break
			}
			return nil, fmt.Errorf("failed to fetch message: %w", err)
		}
		records = append(records, domain.Record{
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
			Time:      msg.Time,
		})
	}
	return records, nil
}

// CommitCheckpoints durably commits the given per-partition offsets to
// the consumer group. Committing a checkpoint acknowledges every offset
// of that partition up to and including it.
func (c *Consumer) CommitCheckpoints(ctx context.Context, checkpoints ...domain.Checkpoint) error {
	if len(checkpoints) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(checkpoints))
	for i, cp := range checkpoints {
		msgs[i] = kafka.Message{
			Topic:     c.topic,
			Partition: cp.Partition,
			Offset:    cp.Offset,
		}
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to commit offsets: %w", err)
	}
	return nil
}

// Close releases the group membership.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
