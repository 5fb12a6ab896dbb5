package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate brings the schema up to date. PostgreSQL runs the embedded goose
// migrations; SQLite is created from the gorm models.
func Migrate(ctx context.Context, conn *DBConnection) error {
	if conn.Driver() == constants.DriverSQLite {
		if err := conn.DB().WithContext(ctx).AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.AuthEvent{}); err != nil {
			return errors.ErrServerError("failed to migrate sqlite schema").WithCause(err)
		}
		conn.logger.Info(ctx, "SQLite schema migrated")
		return nil
	}

	sqlDB, err := conn.DB().DB()
	if err != nil {
		return errors.ErrServerError("failed to access connection pool").WithCause(err)
	}

	if err := setupGoose(conn.logger); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		conn.logger.Error(ctx, "Database migration failed", err)
		return errors.ErrServerError("database migration failed").WithCause(err)
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err == nil {
		conn.logger.Info(ctx, "Database migrated", logger.Int64("version", version))
	}
	return nil
}

// MigrationVersion reports the applied goose version. SQLite databases have none.
func MigrationVersion(ctx context.Context, conn *DBConnection) (int64, error) {
	if conn.Driver() == constants.DriverSQLite {
		return 0, nil
	}
	sqlDB, err := conn.DB().DB()
	if err != nil {
		return 0, err
	}
	if err := setupGoose(conn.logger); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

func setupGoose(log logger.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{log: log})
	if err := goose.SetDialect("pgx"); err != nil {
		return errors.ErrConfiguration("goose dialect").WithCause(err)
	}
	return nil
}

// gooseLogger adapts the service logger to goose.Logger.
type gooseLogger struct {
	log logger.Logger
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(context.Background(), fmt.Sprintf(format, v...))
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal(context.Background(), fmt.Sprintf(format, v...), nil)
}

//Personal.AI order the ending
