//go:build integration

package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/domain/models"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/internal/infrastructure/audit"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
	infraredis "github.com/turtacn/tokenlife/internal/infrastructure/redis"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

func openPostgres(t *testing.T) *postgres.DBConnection {
	t.Helper()
	ctx := context.Background()

	conn, err := postgres.NewDBConnection(ctx, &pgConfig, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, postgres.Migrate(ctx, conn))
	require.NoError(t, conn.DB().Exec("TRUNCATE "+constants.TableRefreshTokens+", "+constants.TableAuthEvents+", "+constants.TableUsers+" RESTART IDENTITY CASCADE").Error)
	return conn
}

func TestMigrationsAreIdempotent(t *testing.T) {
	conn := openPostgres(t)
	ctx := context.Background()

	require.NoError(t, postgres.Migrate(ctx, conn))
	version, err := postgres.MigrationVersion(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	conn := openPostgres(t)
	repo := postgres.NewUserRepository(conn.DB(), logger.NewNoopLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Email: "e@example.com", Username: "evasquez", HashedPassword: "x", IsActive: true, Role: constants.RoleUser}))
	err := repo.Create(ctx, &models.User{Email: "other@example.com", Username: "evasquez", HashedPassword: "x", Role: constants.RoleUser})
	assert.True(t, errors.HasCode(err, constants.ErrCodeUserExists))
}

func TestRefreshTokenRepository_ConsumeOnce(t *testing.T) {
	conn := openPostgres(t)
	log := logger.NewNoopLogger()
	users := postgres.NewUserRepository(conn.DB(), log)
	tokens := postgres.NewRefreshTokenRepository(conn.DB(), log)
	ctx := context.Background()

	user := &models.User{Email: "e@example.com", Username: "evasquez", HashedPassword: "x", IsActive: true, Role: constants.RoleUser}
	require.NoError(t, users.Create(ctx, user))

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, tokens.Insert(ctx, models.NewRefreshToken(user.ID, "tok-1", exp, models.ClientInfo{IP: "10.0.0.1"})))
	require.NoError(t, tokens.Insert(ctx, models.NewRefreshToken(user.ID, "tok-old", time.Now().Add(-time.Minute), models.ClientInfo{})))

	const workers = 10
	var wg sync.WaitGroup
	var found int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := tokens.FindAndConsume(ctx, "tok-1")
			if err == nil && rec != nil {
				atomic.AddInt32(&found, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), found)

	purged, err := tokens.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestRotationAgainstPostgresAndRedis(t *testing.T) {
	conn := openPostgres(t)
	log := logger.NewNoopLogger()
	ctx := context.Background()

	rdb := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.FlushDB(ctx).Err())

	metrics := monitoring.NewMetricsAdapter(monitoring.NewMetrics(prometheus.NewRegistry()))
	codec, err := domainService.NewJWTCodec([]byte("integration-secret"), constants.AlgorithmHS256)
	require.NoError(t, err)
	hasher := domainService.NewBcryptHasher(bcrypt.MinCost)
	denylist := infraredis.NewAccessTokenDenylist(rdb, metrics, log)
	auditSvc := audit.NewGormAuditService(conn.DB(), log)
	settings := service.TokenSettings{AccessTTL: 10 * time.Minute, RefreshTTL: 48 * time.Hour}

	users := postgres.NewUserRepository(conn.DB(), log)
	uow := postgres.NewUnitOfWork(conn.DB(), log)
	auth := service.NewAuthAppService(users, uow, hasher, codec, settings, auditSvc, metrics, log)
	sessions := service.NewSessionAppService(postgres.NewRefreshTokenRepository(conn.DB(), log), uow, codec, denylist, settings, auditSvc, metrics, log)
	verifier := service.NewAccessTokenVerifier(codec, denylist, log)

	hashed, err := hasher.Hash("test1234")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, &models.User{Email: "e@example.com", Username: "evasquez", HashedPassword: hashed, IsActive: true, Role: constants.RoleUser}))

	pair, err := auth.Login(ctx, "evasquez", "test1234", models.ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes int32
		revoked   int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.Rotate(ctx, pair.RefreshToken, models.ClientInfo{})
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.HasCode(err, constants.ErrCodeRefreshTokenRevoked):
				atomic.AddInt32(&revoked, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(7), revoked)

	second, err := auth.Login(ctx, "evasquez", "test1234", models.ClientInfo{})
	require.NoError(t, err)
	require.NoError(t, sessions.Logout(ctx, second.RefreshToken, second.AccessToken))

	_, err = verifier.DecodeAccessToken(ctx, second.AccessToken)
	assert.True(t, errors.HasCode(err, constants.ErrCodeAccessTokenRevoked))

	var replays int64
	require.NoError(t, conn.DB().Model(&models.AuthEvent{}).Where("event_type = ?", constants.AuditEventRefreshReplayDetected).Count(&replays).Error)
	assert.Equal(t, int64(revoked), replays)
}
