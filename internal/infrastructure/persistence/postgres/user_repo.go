package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/repository"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// UserRepo implements UserRepository with gorm.
type UserRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUserRepository creates a new user repository instance.
func NewUserRepository(db *gorm.DB, log logger.Logger) repository.UserRepository {
	return &UserRepo{
		db:     db,
		logger: log,
	}
}

// Create registers a new user.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	startTime := time.Now()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			r.logger.Info(ctx, "User already exists", logger.String("username", user.Username))
			return errors.ErrUserExists().WithCause(err)
		}
		r.logger.Error(ctx, "Failed to create user", err, logger.String("username", user.Username))
		return errors.ErrServerError("failed to create user").WithCause(err)
	}

	r.logger.Info(ctx, "User created successfully",
		logger.Int64("user_id", user.ID),
		logger.String("username", user.Username),
		logger.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)
	return nil
}

// FindByUsername returns (nil, nil) for unknown usernames.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error(ctx, "Failed to retrieve user by username", err)
		return nil, errors.ErrServerError("failed to retrieve user").WithCause(err)
	}
	return &user, nil
}

// FindByID retrieves a user by its identifier.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Debug(ctx, "User not found", logger.Int64("user_id", id))
			return nil, errors.ErrNotFound("user")
		}
		r.logger.Error(ctx, "Failed to retrieve user by ID", err, logger.Int64("user_id", id))
		return nil, errors.ErrServerError("failed to retrieve user").WithCause(err)
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hashed_password": hashedPassword,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update password", result.Error, logger.Int64("user_id", id))
		return errors.ErrServerError("failed to update password").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound("user")
	}

	r.logger.Info(ctx, "Password updated", logger.Int64("user_id", id))
	return nil
}

//Personal.AI order the ending
