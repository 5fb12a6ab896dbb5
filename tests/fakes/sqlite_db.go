package fakes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// NewSQLiteDB opens a migrated in-memory SQLite database private to t.
func NewSQLiteDB(t *testing.T) *postgres.DBConnection {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	cfg := &config.DatabaseConfig{
		Driver:     constants.DriverSQLite,
		SQLitePath: "file:" + name + "?mode=memory&cache=shared",
	}

	ctx := context.Background()
	conn, err := postgres.NewDBConnection(ctx, cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, conn))

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
