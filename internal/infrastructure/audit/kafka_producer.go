package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the message value.
const SignatureHeader = "x-tokenlife-signature"

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer is a Kafka-backed implementation of the AuditService.
type KafkaProducer struct {
	writer  MessageWriter
	hmacKey []byte
	logger  logger.Logger
}

// NewKafkaProducer creates a producer writing to cfg.AuditTopic. Messages are
// signed when hmacKey is not empty.
func NewKafkaProducer(cfg *config.KafkaConfig, hmacKey []byte, log logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
	return NewKafkaProducerWithWriter(writer, hmacKey, log)
}

// NewKafkaProducerWithWriter creates a producer over an existing writer.
func NewKafkaProducerWithWriter(w MessageWriter, hmacKey []byte, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer:  w,
		hmacKey: hmacKey,
		logger:  log.WithComponent("KafkaProducer"),
	}
}

// LogEvent publishes the event as JSON. Events of one user share a message
// key so they stay ordered within a partition.
func (p *KafkaProducer) LogEvent(ctx context.Context, event *models.AuthEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(messageKey(event)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if len(p.hmacKey) > 0 {
		msg.Headers = append(msg.Headers, kafka.Header{Key: SignatureHeader, Value: []byte(Sign(value, p.hmacKey))})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(ctx, "failed to write message to Kafka", err,
			logger.String("event_type", string(event.EventType)),
		)
		return err
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func messageKey(event *models.AuthEvent) string {
	if event.UserID != 0 {
		return strconv.FormatInt(event.UserID, 10)
	}
	return event.Username
}

var _ service.AuditService = (*KafkaProducer)(nil)

//Personal.AI order the ending
