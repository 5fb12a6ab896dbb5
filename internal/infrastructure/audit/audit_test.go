package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/infrastructure/audit"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/tests/fakes"
)

// MockKafkaWriter is a mock of the Kafka writer
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func loginEvent() *models.AuthEvent {
	return models.NewAuthEvent(constants.AuditEventLoginSucceeded, true).
		WithIdentity(models.Identity{ID: 7, Username: "evasquez", Role: "user"}).
		WithJTI("jti-7").
		WithClient(models.ClientInfo{IP: "10.0.0.1", UserAgent: "curl/8"})
}

func TestKafkaProducer_LogEvent(t *testing.T) {
	writer := new(MockKafkaWriter)
	producer := audit.NewKafkaProducerWithWriter(writer, []byte("audit-key"), logger.NewNoopLogger())
	event := loginEvent()

	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil).Once()

	require.NoError(t, producer.LogEvent(context.Background(), event))
	writer.AssertExpectations(t)

	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "7", string(msg.Key))

	var decoded models.AuthEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, constants.AuditEventLoginSucceeded, decoded.EventType)
	assert.Equal(t, "evasquez", decoded.Username)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(constants.AuditEventLoginSucceeded), headers["event_type"])
	assert.True(t, audit.Verify(msg.Value, []byte("audit-key"), headers[audit.SignatureHeader]))
	assert.False(t, audit.Verify(msg.Value, []byte("other-key"), headers[audit.SignatureHeader]))
}

func TestKafkaProducer_Unsigned(t *testing.T) {
	writer := new(MockKafkaWriter)
	producer := audit.NewKafkaProducerWithWriter(writer, nil, logger.NewNoopLogger())

	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		for _, h := range msgs[0].Headers {
			if h.Key == audit.SignatureHeader {
				return false
			}
		}
		return string(msgs[0].Key) == "ghost"
	})).Return(nil).Once()

	event := models.NewAuthEvent(constants.AuditEventLoginFailed, false).
		WithUsername("ghost").
		WithReason(constants.ErrCodeAuthenticationFailed)
	require.NoError(t, producer.LogEvent(context.Background(), event))
	writer.AssertExpectations(t)
}

func TestKafkaProducer_WriteError(t *testing.T) {
	writer := new(MockKafkaWriter)
	producer := audit.NewKafkaProducerWithWriter(writer, nil, logger.NewNoopLogger())
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	writer.On("Close").Return(nil)

	assert.Error(t, producer.LogEvent(context.Background(), loginEvent()))
	assert.NoError(t, producer.Close())
	writer.AssertExpectations(t)
}

func TestGormAuditService_LogEvent(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	sink := audit.NewGormAuditService(conn.DB(), logger.NewNoopLogger())

	require.NoError(t, sink.LogEvent(context.Background(), loginEvent()))

	var stored []models.AuthEvent
	require.NoError(t, conn.DB().Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.NotZero(t, stored[0].ID)
	assert.Equal(t, int64(7), stored[0].UserID)
	assert.Equal(t, "jti-7", stored[0].JTI)
	assert.Equal(t, "10.0.0.1", stored[0].ClientIP)
	assert.True(t, stored[0].Success)
}

func TestLogAuditService_LogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := audit.NewLogAuditService(monitoring.NewZapLoggerFromCore(core))
	ctx := context.Background()

	require.NoError(t, sink.LogEvent(ctx, loginEvent()))
	require.NoError(t, sink.LogEvent(ctx, models.NewAuthEvent(constants.AuditEventRefreshReplayDetected, false).
		WithReason(constants.ErrCodeRefreshTokenRevoked)))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "evasquez", entries[0].ContextMap()["username"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, string(constants.ErrCodeRefreshTokenRevoked), entries[1].ContextMap()["reason"])
}

func TestNewAuditService(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	log := logger.NewNoopLogger()

	for _, sink := range []string{constants.AuditSinkLog, constants.AuditSinkDatabase, constants.AuditSinkKafka} {
		cfg := &config.Config{
			Audit: config.AuditConfig{Sink: sink},
			Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, AuditTopic: "tokenlife.auth-events"},
		}
		svc, closeFn, err := audit.NewAuditService(cfg, conn.DB(), log)
		require.NoError(t, err, sink)
		assert.NotNil(t, svc)
		assert.NoError(t, closeFn())
	}

	_, closeFn, err := audit.NewAuditService(&config.Config{Audit: config.AuditConfig{Sink: "syslog"}}, conn.DB(), log)
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestSign(t *testing.T) {
	sig := audit.Sign([]byte("payload"), []byte("k"))
	assert.NotEmpty(t, sig)
	assert.Equal(t, sig, audit.Sign([]byte("payload"), []byte("k")))
	assert.False(t, audit.Verify([]byte("payload2"), []byte("k"), sig))
	assert.False(t, audit.Verify([]byte("payload"), []byte("k"), "not base64!"))
}

//Personal.AI order the ending
