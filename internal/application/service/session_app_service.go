package service

import (
	"context"
	"time"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/repository"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// SessionAppService 管理刷新令牌会话：轮换、登出与批量吊销
type SessionAppService interface {
	// Rotate consumes a refresh token and issues a new pair. The new refresh
	// token keeps the expiry of the consumed one.
	Rotate(ctx context.Context, presented string, client models.ClientInfo) (*models.TokenPair, error)

	// Logout consumes a refresh token without minting anything. When
	// accessToken is a valid access token of the same user it is denylisted.
	Logout(ctx context.Context, presented, accessToken string) error

	// ListSessions returns the live refresh token records of a user.
	ListSessions(ctx context.Context, userID int64) ([]*models.RefreshToken, error)

	// RevokeAllSessions deletes every refresh token record of a user.
	RevokeAllSessions(ctx context.Context, userID int64) (int, error)

	// PurgeExpired deletes records whose expiry has passed.
	PurgeExpired(ctx context.Context) (int64, error)
}

type sessionAppServiceImpl struct {
	tokens   repository.RefreshTokenRepository
	uow      repository.UnitOfWork
	codec    domainService.TokenCodec
	issuer   *tokenIssuer
	denylist domainService.AccessTokenDenylist
	audit    domainService.AuditService
	metrics  domainService.Metrics
	logger   logger.Logger
	now      func() time.Time
}

// NewSessionAppService creates a new SessionAppService
func NewSessionAppService(
	tokens repository.RefreshTokenRepository,
	uow repository.UnitOfWork,
	codec domainService.TokenCodec,
	denylist domainService.AccessTokenDenylist,
	settings TokenSettings,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
	opts ...Option,
) SessionAppService {
	o := buildOptions(opts)
	return &sessionAppServiceImpl{
		tokens:   tokens,
		uow:      uow,
		codec:    codec,
		issuer:   &tokenIssuer{codec: codec, settings: settings},
		denylist: denylist,
		audit:    audit,
		metrics:  metrics,
		logger:   log.WithComponent("SessionAppService"),
		now:      o.now,
	}
}

// Rotate implements refresh token rotation
func (s *sessionAppServiceImpl) Rotate(ctx context.Context, presented string, client models.ClientInfo) (pair *models.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "SessionAppService.Rotate")
	defer func() {
		s.metrics.RecordRotation(err)
		endSpan(span, err)
	}()

	// 1. Verify the presented token
	claims, err := s.codec.Verify(presented)
	if err != nil {
		if errors.HasCode(err, constants.ErrCodeExpiredToken) {
			s.cleanupExpired(ctx, presented)
			return nil, errors.ErrRefreshTokenExpired().WithCause(err)
		}
		return nil, err
	}

	// 2. Only refresh tokens rotate
	if !claims.IsRefresh() {
		return nil, errors.ErrWrongTokenType(constants.TokenTypeRefresh)
	}
	identity := *claims.User

	// 3-5. Consume the record and store its successor in one transaction
	now := s.now()
	var (
		issued  *issuedPair
		expired bool
	)
	err = s.uow.Execute(ctx, func(tx repository.TxRepositories) error {
		record, err := tx.RefreshTokens().FindAndConsume(ctx, presented)
		if err != nil {
			return err
		}
		if record == nil {
			return errors.ErrRefreshTokenRevoked()
		}
		if record.IsExpired(now) {
			// commit the delete, then report expiry
			expired = true
			return nil
		}

		issued, err = s.issuer.mintPair(identity, now, record.ExpiresAt)
		if err != nil {
			return err
		}
		return tx.RefreshTokens().Insert(ctx, models.NewRefreshToken(record.UserID, issued.pair.RefreshToken, record.ExpiresAt, client))
	})
	if err != nil {
		if errors.HasCode(err, constants.ErrCodeRefreshTokenRevoked) {
			s.reportReplay(ctx, claims, client)
		} else {
			s.logger.Error(ctx, "Refresh token rotation failed", err, logger.Int64("user_id", identity.ID))
		}
		return nil, err
	}
	if expired {
		return nil, errors.ErrRefreshTokenExpired()
	}

	// 6. Return the pair carrying the original expiry
	s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventTokenRotated, true).
		WithIdentity(identity).
		WithJTI(issued.refreshJTI).
		WithClient(client))
	s.logger.Debug(ctx, "Refresh token rotated",
		logger.Int64("user_id", identity.ID),
		logger.String("consumed_jti", claims.ID),
		logger.String("issued_jti", issued.refreshJTI),
	)
	return issued.pair, nil
}

// reportReplay records a structurally valid, unexpired refresh token that
// no longer has a record.
func (s *sessionAppServiceImpl) reportReplay(ctx context.Context, claims *models.TokenClaims, client models.ClientInfo) {
	s.metrics.RecordReplayDetected()
	s.logger.Warn(ctx, "Refresh token presented after it was consumed",
		logger.Int64("user_id", claims.UserID()),
		logger.String("jti", claims.ID),
		logger.String("client_ip", client.IP),
	)
	s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventRefreshReplayDetected, false).
		WithIdentity(*claims.User).
		WithJTI(claims.ID).
		WithClient(client).
		WithReason(constants.ErrCodeRefreshTokenRevoked))
}

// cleanupExpired drops the record of an expired refresh token. Failures are
// only logged.
func (s *sessionAppServiceImpl) cleanupExpired(ctx context.Context, presented string) {
	err := s.uow.Execute(ctx, func(tx repository.TxRepositories) error {
		_, err := tx.RefreshTokens().FindAndConsume(ctx, presented)
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "Failed to clean up expired refresh token", logger.Err(err))
	}
}

// Logout implements logout
func (s *sessionAppServiceImpl) Logout(ctx context.Context, presented, accessToken string) (err error) {
	ctx, span := tracer.Start(ctx, "SessionAppService.Logout")
	defer func() {
		s.metrics.RecordLogout(err)
		endSpan(span, err)
	}()

	claims, err := s.codec.Verify(presented)
	switch {
	case err == nil:
		if !claims.IsRefresh() {
			return errors.ErrWrongTokenType(constants.TokenTypeRefresh)
		}
	case errors.HasCode(err, constants.ErrCodeExpiredToken):
		s.cleanupExpired(ctx, presented)
	default:
		return err
	}

	var consumed *models.RefreshToken
	if claims != nil {
		err = s.uow.Execute(ctx, func(tx repository.TxRepositories) error {
			record, err := tx.RefreshTokens().FindAndConsume(ctx, presented)
			consumed = record
			return err
		})
		if err != nil {
			s.logger.Error(ctx, "Failed to consume refresh token on logout", err)
			return err
		}
		if consumed == nil {
			s.logger.Debug(ctx, "Logout with a refresh token that has no record", logger.String("jti", claims.ID))
		}
	}

	// the owner of an expired refresh token is unknown, so its access token is left alone
	if accessToken != "" && claims != nil {
		if err := s.denylistAccessToken(ctx, accessToken, claims); err != nil {
			return err
		}
	}

	event := models.NewAuthEvent(constants.AuditEventLogout, true)
	if claims != nil {
		event.WithIdentity(*claims.User).WithJTI(claims.ID)
	}
	s.logAudit(ctx, event)
	return nil
}

// denylistAccessToken revokes accessToken until its exp. Tokens that do not
// verify, are not access tokens, or belong to another user are ignored.
func (s *sessionAppServiceImpl) denylistAccessToken(ctx context.Context, accessToken string, refresh *models.TokenClaims) error {
	access, err := s.codec.Verify(accessToken)
	if err != nil || access.IsRefresh() {
		return nil
	}
	if refresh.UserID() != access.UserID() {
		s.logger.Warn(ctx, "Logout access token belongs to another user",
			logger.Int64("refresh_user_id", refresh.UserID()),
			logger.Int64("access_user_id", access.UserID()),
		)
		return nil
	}

	if err := s.denylist.Revoke(ctx, access.ID, access.ExpiresAt.Time); err != nil {
		s.logger.Error(ctx, "Failed to denylist access token", err, logger.String("jti", access.ID))
		return errors.WrapError(err, constants.ErrCodeServerError, "failed to revoke access token")
	}
	return nil
}

// ListSessions returns the live sessions of userID, oldest first.
func (s *sessionAppServiceImpl) ListSessions(ctx context.Context, userID int64) ([]*models.RefreshToken, error) {
	return s.tokens.ListByUser(ctx, userID)
}

// RevokeAllSessions implements bulk session revocation
func (s *sessionAppServiceImpl) RevokeAllSessions(ctx context.Context, userID int64) (revoked int, err error) {
	ctx, span := tracer.Start(ctx, "SessionAppService.RevokeAllSessions", traceUser(userID))
	defer func() { endSpan(span, err) }()

	err = s.uow.Execute(ctx, func(tx repository.TxRepositories) error {
		n, err := revokeSessions(ctx, tx.RefreshTokens(), userID)
		revoked = n
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to revoke sessions", err, logger.Int64("user_id", userID))
		return 0, err
	}

	s.metrics.RecordSessionsRevoked(revoked)
	event := models.NewAuthEvent(constants.AuditEventSessionsRevoked, true)
	event.UserID = userID
	s.logAudit(ctx, event)
	s.logger.Info(ctx, "Sessions revoked", logger.Int64("user_id", userID), logger.Int("count", revoked))
	return revoked, nil
}

// PurgeExpired deletes every record that expired before now.
func (s *sessionAppServiceImpl) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now())
}

func (s *sessionAppServiceImpl) logAudit(ctx context.Context, event *models.AuthEvent) {
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Error(ctx, "Failed to write audit event", err, logger.String("event_type", string(event.EventType)))
	}
}

//Personal.AI order the ending
