// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/repository"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/pkg/utils"
)

// AuthAppService defines the interface for the password-based side of the service:
// login, registration and the user's own account.
type AuthAppService interface {
	// Login verifies username and password and issues a new token pair.
	// Every credential failure is the same AuthenticationFailed error.
	Login(ctx context.Context, username, password string, client models.ClientInfo) (*models.TokenPair, error)

	// Register creates a user with the default role.
	Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error)

	// CurrentUser loads the user behind an access token.
	CurrentUser(ctx context.Context, userID int64) (*models.User, error)

	// ChangePassword replaces the password and revokes every refresh token of the user.
	ChangePassword(ctx context.Context, identity models.Identity, req *dto.ChangePasswordRequest) error
}

// authAppServiceImpl is the concrete implementation of AuthAppService
type authAppServiceImpl struct {
	users   repository.UserRepository
	uow     repository.UnitOfWork
	hasher  domainService.PasswordHasher
	issuer  *tokenIssuer
	audit   domainService.AuditService
	metrics domainService.Metrics
	logger  logger.Logger
	now     func() time.Time
}

// NewAuthAppService creates a new instance of AuthAppService
func NewAuthAppService(
	users repository.UserRepository,
	uow repository.UnitOfWork,
	hasher domainService.PasswordHasher,
	codec domainService.TokenCodec,
	settings TokenSettings,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
	opts ...Option,
) AuthAppService {
	o := buildOptions(opts)
	return &authAppServiceImpl{
		users:   users,
		uow:     uow,
		hasher:  hasher,
		issuer:  &tokenIssuer{codec: codec, settings: settings},
		audit:   audit,
		metrics: metrics,
		logger:  log.WithComponent("AuthAppService"),
		now:     o.now,
	}
}

// Login implements password login
func (s *authAppServiceImpl) Login(ctx context.Context, username, password string, client models.ClientInfo) (pair *models.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthAppService.Login")
	start := time.Now()
	defer func() {
		s.metrics.RecordLogin(time.Since(start), err)
		endSpan(span, err)
	}()

	// 1. Resolve the user
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	// 2. Verify the password. An unknown user still pays for one bcrypt comparison.
	if user == nil {
		s.hasher.CompareDummy(password)
		s.recordLoginFailure(ctx, username, client)
		return nil, errors.ErrAuthenticationFailed()
	}
	if !s.hasher.Compare(user.HashedPassword, password) || !user.IsActive {
		s.recordLoginFailure(ctx, username, client)
		return nil, errors.ErrAuthenticationFailed()
	}

	identity := user.Identity()
	span.SetAttributes(attribute.Int64("user.id", identity.ID))

	// 3-4. Mint both tokens; the refresh expiry is fixed here for the whole session
	now := s.now()
	refreshExp := now.Add(s.issuer.settings.RefreshTTL).Truncate(time.Second)
	issued, err := s.issuer.mintPair(identity, now, refreshExp)
	if err != nil {
		s.logger.Error(ctx, "Failed to mint token pair", err, logger.Int64("user_id", identity.ID))
		return nil, err
	}

	// 5. Store the refresh token record
	err = s.uow.Execute(ctx, func(tx repository.TxRepositories) error {
		return tx.RefreshTokens().Insert(ctx, models.NewRefreshToken(identity.ID, issued.pair.RefreshToken, refreshExp, client))
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to store refresh token", err, logger.Int64("user_id", identity.ID))
		return nil, err
	}

	// 6. Audit and return
	s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventLoginSucceeded, true).
		WithIdentity(identity).
		WithJTI(issued.refreshJTI).
		WithClient(client))
	s.logger.Info(ctx, "User logged in",
		logger.Int64("user_id", identity.ID),
		logger.String("access_jti", issued.accessJTI),
		logger.Time("refresh_expires_at", refreshExp),
	)
	return issued.pair, nil
}

func (s *authAppServiceImpl) recordLoginFailure(ctx context.Context, username string, client models.ClientInfo) {
	s.logger.Warn(ctx, "Login rejected", logger.String("username", username), logger.String("client_ip", client.IP))
	s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventLoginFailed, false).
		WithUsername(username).
		WithClient(client).
		WithReason(constants.ErrCodeAuthenticationFailed))
}

// Register implements user registration
func (s *authAppServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (user *models.User, err error) {
	ctx, span := tracer.Start(ctx, "AuthAppService.Register")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Email:          req.Email,
		Username:       req.Username,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		HashedPassword: hashed,
		IsActive:       true,
		Role:           constants.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.HasCode(err, constants.ErrCodeUserExists) {
			s.logger.Warn(ctx, "Registration rejected for existing user", logger.String("username", req.Username))
		}
		return nil, err
	}

	s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventUserRegistered, true).WithIdentity(user.Identity()))
	s.logger.Info(ctx, "User registered", logger.Int64("user_id", user.ID), logger.String("username", user.Username))
	return user, nil
}

// CurrentUser returns the stored user for id.
func (s *authAppServiceImpl) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ChangePassword implements the password change of a signed-in user
func (s *authAppServiceImpl) ChangePassword(ctx context.Context, identity models.Identity, req *dto.ChangePasswordRequest) (err error) {
	ctx, span := tracer.Start(ctx, "AuthAppService.ChangePassword", traceUser(identity.ID))
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, identity.ID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.HashedPassword, req.OldPassword) {
		s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventPasswordChanged, false).
			WithIdentity(identity).
			WithReason(constants.ErrCodeAuthenticationFailed))
		return errors.ErrAuthenticationFailed()
	}

	// bcrypt runs outside the transaction
	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	revoked := 0
	err = s.uow.Execute(ctx, func(tx repository.TxRepositories) error {
		if err := tx.Users().UpdatePassword(ctx, user.ID, hashed); err != nil {
			return err
		}
		n, err := revokeSessions(ctx, tx.RefreshTokens(), user.ID)
		revoked = n
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to change password", err, logger.Int64("user_id", user.ID))
		return err
	}

	s.metrics.RecordSessionsRevoked(revoked)
	s.logAudit(ctx, models.NewAuthEvent(constants.AuditEventPasswordChanged, true).WithIdentity(identity))
	s.logger.Info(ctx, "Password changed",
		logger.Int64("user_id", user.ID),
		logger.Int("sessions_revoked", revoked),
	)
	return nil
}

func (s *authAppServiceImpl) logAudit(ctx context.Context, event *models.AuthEvent) {
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Error(ctx, "Failed to write audit event", err, logger.String("event_type", string(event.EventType)))
	}
}

// revokeSessions deletes every refresh token record of userID through repo.
func revokeSessions(ctx context.Context, repo repository.RefreshTokenRepository, userID int64) (int, error) {
	records, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, record := range records {
		if err := repo.DeleteByRecord(ctx, record); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

//Personal.AI order the ending
