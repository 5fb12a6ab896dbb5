package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/domain/models"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/tests/fakes"
)

const (
	testUsername = "evasquez"
	testPassword = "test1234"
)

var testSettings = service.TokenSettings{
	AccessTTL:  10 * time.Minute,
	RefreshTTL: 48 * time.Hour,
}

// testClock is a settable clock shared by the codec and the services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	auth     service.AuthAppService
	sessions service.SessionAppService
	verifier service.AccessTokenVerifier

	conn     *postgres.DBConnection
	hasher   domainService.PasswordHasher
	audit    *fakes.FakeAuditProducer
	denylist *fakes.InMemoryDenylist
	metrics  *monitoring.Metrics
	clock    *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn := fakes.NewSQLiteDB(t)
	log := logger.NewNoopLogger()
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}

	codec, err := domainService.NewJWTCodec([]byte("test-signing-key"), constants.AlgorithmHS256, domainService.WithTimeFunc(clock.Now))
	require.NoError(t, err)

	h := &harness{
		conn:     conn,
		hasher:   domainService.NewBcryptHasher(bcrypt.MinCost),
		audit:    fakes.NewFakeAuditProducer(64),
		denylist: fakes.NewInMemoryDenylist(),
		metrics:  monitoring.NewMetrics(prometheus.NewRegistry()),
		clock:    clock,
	}

	users := postgres.NewUserRepository(conn.DB(), log)
	tokens := postgres.NewRefreshTokenRepository(conn.DB(), log)
	uow := postgres.NewUnitOfWork(conn.DB(), log)
	metrics := monitoring.NewMetricsAdapter(h.metrics)

	h.auth = service.NewAuthAppService(users, uow, h.hasher, codec, testSettings, h.audit, metrics, log, service.WithClock(clock.Now))
	h.sessions = service.NewSessionAppService(tokens, uow, codec, h.denylist, testSettings, h.audit, metrics, log, service.WithClock(clock.Now))
	h.verifier = service.NewAccessTokenVerifier(codec, h.denylist, log)
	return h
}

// seedUser stores an active user with the given password.
func (h *harness) seedUser(t *testing.T, username, password string) *models.User {
	t.Helper()

	hashed, err := h.hasher.Hash(password)
	require.NoError(t, err)

	user := &models.User{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: hashed,
		IsActive:       true,
		Role:           constants.RoleUser,
	}
	require.NoError(t, postgres.NewUserRepository(h.conn.DB(), logger.NewNoopLogger()).Create(context.Background(), user))
	return user
}

func (h *harness) login(t *testing.T) *models.TokenPair {
	t.Helper()
	pair, err := h.auth.Login(context.Background(), testUsername, testPassword, models.ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return pair
}

func (h *harness) sessionCount(t *testing.T, userID int64) int {
	t.Helper()
	sessions, err := h.sessions.ListSessions(context.Background(), userID)
	require.NoError(t, err)
	return len(sessions)
}
