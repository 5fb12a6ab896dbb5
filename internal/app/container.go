// Package app assembles the token service from configuration. Both the
// server binary and the admin CLI build their dependencies here.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/config"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/internal/infrastructure/audit"
	"github.com/turtacn/tokenlife/internal/infrastructure/kms"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
	redisconn "github.com/turtacn/tokenlife/internal/infrastructure/persistence/redis"
	"github.com/turtacn/tokenlife/internal/infrastructure/ratelimit"
	"github.com/turtacn/tokenlife/internal/infrastructure/redis"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// Container holds every long-lived dependency of the service.
// Container 持有服务运行所需的全部依赖。
type Container struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *monitoring.Metrics

	DB    *postgres.DBConnection
	Redis *redisconn.RedisConnection // nil when redis.enabled is false

	Codec       domainService.TokenCodec
	Denylist    domainService.AccessTokenDenylist
	RateLimiter domainService.RateLimitService
	Audit       domainService.AuditService

	AuthService    service.AuthAppService
	SessionService service.SessionAppService
	Verifier       service.AccessTokenVerifier

	closers []func() error
}

// New connects the stores, resolves the signing secret and builds the
// application services. Metrics register on reg.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (_ *Container, err error) {
	// c stays bound to the partly built container so failures release what was opened
	c := &Container{Config: cfg, Logger: log, Metrics: monitoring.NewMetrics(reg)}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if err = c.connectDatabase(ctx); err != nil {
		return nil, err
	}
	if err = c.connectRedis(ctx); err != nil {
		return nil, err
	}
	if err = c.buildCodec(ctx); err != nil {
		return nil, err
	}

	auditSvc, closeAudit, err := audit.NewAuditService(cfg, c.DB.DB(), log)
	if err != nil {
		return nil, err
	}
	c.Audit = auditSvc
	c.closers = append(c.closers, closeAudit)

	metrics := monitoring.NewMetricsAdapter(c.Metrics)
	if c.Redis != nil {
		c.Denylist = redis.NewAccessTokenDenylist(c.Redis.GetClient(), metrics, log)
		limiter, lerr := ratelimit.NewRedisRateLimiter(c.Redis.GetClient(), ratelimit.NewRateLimiterConfig(&cfg.RateLimit), log)
		if lerr != nil {
			return nil, lerr
		}
		c.RateLimiter = limiter
	} else {
		log.Warn(ctx, "Redis disabled, using in-process denylist and rate limiter")
		c.Denylist = redis.NewLocalAccessTokenDenylist(metrics)
		c.RateLimiter = ratelimit.NewLocalRateLimiter(ratelimit.NewRateLimiterConfig(&cfg.RateLimit))
	}

	db := c.DB.DB()
	uow := postgres.NewUnitOfWork(db, log)
	settings := service.TokenSettingsFromConfig(&cfg.JWT)

	c.AuthService = service.NewAuthAppService(
		postgres.NewUserRepository(db, log), uow,
		domainService.NewBcryptHasher(bcrypt.DefaultCost),
		c.Codec, settings, c.Audit, metrics, log,
	)
	c.SessionService = service.NewSessionAppService(
		postgres.NewRefreshTokenRepository(db, log), uow,
		c.Codec, c.Denylist, settings, c.Audit, metrics, log,
	)
	c.Verifier = service.NewAccessTokenVerifier(c.Codec, c.Denylist, log)

	return c, nil
}

func (c *Container) connectDatabase(ctx context.Context) error {
	conn, err := postgres.NewDBConnection(ctx, &c.Config.Database, c.Logger)
	if err != nil {
		return err
	}
	c.DB = conn
	c.closers = append(c.closers, conn.Close)

	if c.Config.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, conn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if !c.Config.Redis.Enabled {
		return nil
	}
	conn := redisconn.NewRedisConnection(&c.Config.Redis, c.Logger)
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	c.Redis = conn
	c.closers = append(c.closers, conn.Close)
	return nil
}

func (c *Container) buildCodec(ctx context.Context) error {
	var source domainService.SecretSource = domainService.StaticSecret(c.Config.JWT.SecretKey)
	if c.Config.Vault.Enabled {
		client, err := kms.NewVaultClient(&c.Config.Vault)
		if err != nil {
			return err
		}
		source = kms.NewVaultSecretSource(client, &c.Config.Vault, c.Logger)
	}

	key, err := source.SigningSecret(ctx)
	if err != nil {
		return err
	}
	codec, err := domainService.NewJWTCodec(key, constants.JWTAlgorithm(c.Config.JWT.Algorithm))
	if err != nil {
		return err
	}
	c.Codec = codec
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

//Personal.AI order the ending
