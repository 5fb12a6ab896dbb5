// Package audit implements the AuditService interface with three sinks:
// the application log, the auth_events table and a Kafka topic.
package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// NewAuditService builds the sink selected by cfg.Audit.Sink. The returned
// close function releases the sink's resources and is never nil.
func NewAuditService(cfg *config.Config, db *gorm.DB, log logger.Logger) (service.AuditService, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Audit.Sink {
	case constants.AuditSinkLog, "":
		return NewLogAuditService(log), noop, nil
	case constants.AuditSinkDatabase:
		return NewGormAuditService(db, log), noop, nil
	case constants.AuditSinkKafka:
		p := NewKafkaProducer(&cfg.Kafka, []byte(cfg.Audit.HMACKey), log)
		return p, p.Close, nil
	default:
		return nil, noop, errors.ErrConfiguration("unsupported audit.sink " + cfg.Audit.Sink)
	}
}

// LogAuditService writes audit events to the application log.
type LogAuditService struct {
	logger logger.Logger
}

// NewLogAuditService creates a log-backed audit sink.
func NewLogAuditService(log logger.Logger) service.AuditService {
	return &LogAuditService{logger: log.WithComponent("Audit")}
}

// LogEvent logs the event. Replays are logged at warn level.
func (s *LogAuditService) LogEvent(ctx context.Context, event *models.AuthEvent) error {
	fields := []logger.Field{
		logger.String("event_type", string(event.EventType)),
		logger.Bool("success", event.Success),
		logger.Int64("user_id", event.UserID),
		logger.String("username", event.Username),
		logger.String("jti", event.JTI),
		logger.String("client_ip", event.ClientIP),
		logger.String("user_agent", event.UserAgent),
		logger.String("reason", event.Reason),
		logger.Time("occurred_at", event.OccurredAt),
	}
	if event.EventType == constants.AuditEventRefreshReplayDetected {
		s.logger.Warn(ctx, "audit event", fields...)
		return nil
	}
	s.logger.Info(ctx, "audit event", fields...)
	return nil
}

// GormAuditService stores audit events in the auth_events table.
type GormAuditService struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormAuditService creates a database-backed audit sink.
func NewGormAuditService(db *gorm.DB, log logger.Logger) service.AuditService {
	return &GormAuditService{
		db:     db,
		logger: log.WithComponent("GormAuditService"),
	}
}

// LogEvent inserts the event.
func (s *GormAuditService) LogEvent(ctx context.Context, event *models.AuthEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.logger.Error(ctx, "failed to store audit event", err,
			logger.String("event_type", string(event.EventType)),
		)
		return errors.WrapError(err, constants.ErrCodeServerError, "failed to store audit event")
	}
	return nil
}

//Personal.AI order the ending
