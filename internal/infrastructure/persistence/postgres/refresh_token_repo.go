package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/repository"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// RefreshTokenRepo implements RefreshTokenRepository with gorm.
// A row existing is what makes a refresh token live.
type RefreshTokenRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewRefreshTokenRepository creates a refresh token repository on db, which
// may be a transaction handle.
func NewRefreshTokenRepository(db *gorm.DB, log logger.Logger) repository.RefreshTokenRepository {
	return &RefreshTokenRepo{
		db:     db,
		logger: log,
	}
}

// Insert stores a newly issued refresh token.
func (r *RefreshTokenRepo) Insert(ctx context.Context, record *models.RefreshToken) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.ExpiresAt = record.ExpiresAt.UTC()

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			r.logger.Error(ctx, "Refresh token collided with an existing record", err,
				logger.Int64("user_id", record.UserID),
			)
			return errors.ErrStorageConflict("refresh token").WithCause(err)
		}
		r.logger.Error(ctx, "Failed to insert refresh token", err, logger.Int64("user_id", record.UserID))
		return errors.ErrServerError("failed to insert refresh token").WithCause(err)
	}

	r.logger.Debug(ctx, "Refresh token stored",
		logger.Int64("id", record.ID),
		logger.Int64("user_id", record.UserID),
		logger.Time("expires_at", record.ExpiresAt),
	)
	return nil
}

// FindAndConsume deletes the row holding token and returns it in one
// DELETE ... RETURNING statement. Of several concurrent callers only one gets
// the row; the others see nil.
func (r *RefreshTokenRepo) FindAndConsume(ctx context.Context, token string) (*models.RefreshToken, error) {
	var consumed []models.RefreshToken

	err := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("token = ?", token).
		Delete(&consumed).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to consume refresh token", err)
		return nil, errors.ErrServerError("failed to consume refresh token").WithCause(err)
	}

	if len(consumed) == 0 {
		return nil, nil
	}
	return &consumed[0], nil
}

// DeleteByRecord removes a record by primary key. Deleting a missing row is not an error.
func (r *RefreshTokenRepo) DeleteByRecord(ctx context.Context, record *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Delete(&models.RefreshToken{}, record.ID).Error; err != nil {
		r.logger.Error(ctx, "Failed to delete refresh token", err, logger.Int64("id", record.ID))
		return errors.ErrServerError("failed to delete refresh token").WithCause(err)
	}
	return nil
}

// ListByUser returns every live record of a user, oldest first.
func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID int64) ([]*models.RefreshToken, error) {
	var records []*models.RefreshToken

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list refresh tokens", err, logger.Int64("user_id", userID))
		return nil, errors.ErrServerError("failed to list refresh tokens").WithCause(err)
	}
	return records, nil
}

// DeleteExpired removes every record whose expiry is at or before before.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", before.UTC()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to purge expired refresh tokens", result.Error)
		return 0, errors.ErrServerError("failed to purge expired refresh tokens").WithCause(result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Info(ctx, "Purged expired refresh tokens", logger.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

//Personal.AI order the ending
