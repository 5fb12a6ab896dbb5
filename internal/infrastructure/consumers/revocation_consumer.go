// Package consumers contains Kafka consumers for background processing tasks.
package consumers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// RevocationEvent asks for every refresh session of a user to be revoked,
// for instance after an account is disabled elsewhere.
type RevocationEvent struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// SessionRevoker removes all refresh sessions of a user.
type SessionRevoker interface {
	RevokeAllSessions(ctx context.Context, userID int64) (int, error)
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RevocationConsumer applies session revocation events from Kafka.
type RevocationConsumer struct {
	reader  MessageReader
	revoker SessionRevoker
	logger  logger.Logger
	backoff time.Duration
}

// NewRevocationConsumer creates a consumer group reader on cfg.RevocationTopic.
// All replicas share cfg.ConsumerGroup, so each event is handled once.
func NewRevocationConsumer(cfg *config.KafkaConfig, revoker SessionRevoker, log logger.Logger) *RevocationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.RevocationTopic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	return NewRevocationConsumerWithReader(reader, revoker, log)
}

// Option configures a RevocationConsumer.
type Option func(*RevocationConsumer)

// WithBackoff sets the pause between fetch or handling retries.
func WithBackoff(d time.Duration) Option {
	return func(c *RevocationConsumer) { c.backoff = d }
}

// NewRevocationConsumerWithReader creates a consumer over an existing reader.
func NewRevocationConsumerWithReader(reader MessageReader, revoker SessionRevoker, log logger.Logger, opts ...Option) *RevocationConsumer {
	c := &RevocationConsumer{
		reader:  reader,
		revoker: revoker,
		logger:  log.WithComponent("RevocationConsumer"),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the consumer loop until ctx is cancelled or the reader is
// closed. It blocks and should be run in a goroutine.
func (c *RevocationConsumer) Start(ctx context.Context) {
	c.logger.Info(ctx, "starting session revocation consumer")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
				c.logger.Info(ctx, "stopping session revocation consumer")
				return
			}
			c.logger.Error(ctx, "failed to fetch message from kafka", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		// offsets are committed per partition, so a failed event is retried
		// in place until it succeeds
		if !c.handleWithRetry(ctx, msg) {
			c.logger.Info(ctx, "stopping session revocation consumer")
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error(ctx, "failed to commit revocation event", err, logger.Int64("offset", msg.Offset))
		}
	}
}

// handleWithRetry reports false when ctx ends before msg is handled.
func (c *RevocationConsumer) handleWithRetry(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := c.handleMessage(ctx, msg)
		if err == nil {
			return true
		}
		c.logger.Error(ctx, "failed to handle revocation event", err,
			logger.Int64("offset", msg.Offset),
			logger.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff):
		}
	}
}

// Stop closes the reader, which ends Start.
func (c *RevocationConsumer) Stop() error {
	if err := c.reader.Close(); err != nil {
		c.logger.Error(context.Background(), "failed to close kafka reader", err)
		return err
	}
	return nil
}

// handleMessage returns nil for messages that can never succeed, so they
// are committed and skipped.
func (c *RevocationConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event RevocationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn(ctx, "dropping malformed revocation event", logger.Err(err), logger.Int64("offset", msg.Offset))
		return nil
	}
	if event.UserID <= 0 {
		c.logger.Warn(ctx, "dropping revocation event without user_id", logger.Int64("offset", msg.Offset))
		return nil
	}

	count, err := c.revoker.RevokeAllSessions(ctx, event.UserID)
	if err != nil {
		return err
	}
	c.logger.Info(ctx, "revoked user sessions",
		logger.Int64("user_id", event.UserID),
		logger.String("reason", event.Reason),
		logger.Int("count", count),
	)
	return nil
}

//Personal.AI order the ending
