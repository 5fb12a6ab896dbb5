package postgres_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/domain/repository"
	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/tests/fakes"
)

func newUser(username string) *models.User {
	return &models.User{
		Email:          username + "@example.com",
		Username:       username,
		FirstName:      "Eva",
		LastName:       "Vasquez",
		HashedPassword: "$2a$04$placeholder",
		IsActive:       true,
		Role:           constants.RoleUser,
	}
}

func TestUserRepo_CreateAndFind(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	repo := postgres.NewUserRepository(conn.DB(), logger.NewNoopLogger())
	ctx := context.Background()

	u := newUser("evasquez")
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	found, err := repo.FindByUsername(ctx, "evasquez")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, constants.RoleUser, found.Role)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "evasquez@example.com", byID.Email)

	missing, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.FindByID(ctx, 9999)
	assert.True(t, errors.HasCode(err, constants.ErrCodeNotFound))
}

func TestUserRepo_Duplicate(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	repo := postgres.NewUserRepository(conn.DB(), logger.NewNoopLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("evasquez")))

	err := repo.Create(ctx, newUser("evasquez"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, constants.ErrCodeUserExists))

	sameEmail := newUser("someone-else")
	sameEmail.Email = "evasquez@example.com"
	err = repo.Create(ctx, sameEmail)
	assert.True(t, errors.HasCode(err, constants.ErrCodeUserExists))
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	repo := postgres.NewUserRepository(conn.DB(), logger.NewNoopLogger())
	ctx := context.Background()

	u := newUser("evasquez")
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "$2a$04$new"))

	found, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$new", found.HashedPassword)

	err = repo.UpdatePassword(ctx, 4242, "x")
	assert.True(t, errors.HasCode(err, constants.ErrCodeNotFound))
}

func TestUnitOfWork_CommitAndRollback(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	log := logger.NewNoopLogger()
	uow := postgres.NewUnitOfWork(conn.DB(), log)
	repo := postgres.NewRefreshTokenRepository(conn.DB(), log)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repo.Insert(ctx, models.NewRefreshToken(1, "old", exp, models.ClientInfo{})))

	boom := stderrors.New("boom")
	err := uow.Execute(ctx, func(tx repository.TxRepositories) error {
		rec, err := tx.RefreshTokens().FindAndConsume(ctx, "old")
		require.NoError(t, err)
		require.NotNil(t, rec)
		require.NoError(t, tx.RefreshTokens().Insert(ctx, models.NewRefreshToken(1, "new", exp, models.ClientInfo{})))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Rolled back: the old token is live again and the new one never existed.
	records, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "old", records[0].Token)

	err = uow.Execute(ctx, func(tx repository.TxRepositories) error {
		if _, err := tx.RefreshTokens().FindAndConsume(ctx, "old"); err != nil {
			return err
		}
		return tx.RefreshTokens().Insert(ctx, models.NewRefreshToken(1, "new", exp, models.ClientInfo{}))
	})
	require.NoError(t, err)

	records, err = repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Token)
}

func TestUnitOfWork_PanicRollsBack(t *testing.T) {
	conn := fakes.NewSQLiteDB(t)
	log := logger.NewNoopLogger()
	uow := postgres.NewUnitOfWork(conn.DB(), log)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = uow.Execute(ctx, func(tx repository.TxRepositories) error {
			_ = tx.RefreshTokens().Insert(ctx, models.NewRefreshToken(1, "p", time.Now().Add(time.Hour), models.ClientInfo{}))
			panic("boom")
		})
	})

	records, err := postgres.NewRefreshTokenRepository(conn.DB(), log).ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}
