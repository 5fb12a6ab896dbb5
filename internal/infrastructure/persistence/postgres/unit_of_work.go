package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/tokenlife/internal/domain/repository"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// UnitOfWork runs a callback inside one gorm transaction.
type UnitOfWork struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUnitOfWork creates a unit of work over db.
func NewUnitOfWork(db *gorm.DB, log logger.Logger) *UnitOfWork {
	return &UnitOfWork{db: db, logger: log}
}

// Execute commits when fn returns nil and rolls back on error or panic.
// Repositories reached through tx must not be used after fn returns.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(tx repository.TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx, logger: u.logger})
	})
}

type txRepositories struct {
	tx     *gorm.DB
	logger logger.Logger
}

func (r *txRepositories) RefreshTokens() repository.RefreshTokenRepository {
	return NewRefreshTokenRepository(r.tx, r.logger)
}

func (r *txRepositories) Users() repository.UserRepository {
	return NewUserRepository(r.tx, r.logger)
}

var _ repository.UnitOfWork = (*UnitOfWork)(nil)

//Personal.AI order the ending
