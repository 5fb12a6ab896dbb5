package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig()
			if err != nil {
				return err
			}

			conn, err := postgres.NewDBConnection(cmd.Context(), &cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if err := postgres.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			version, err := postgres.MigrationVersion(cmd.Context(), conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "schema up to date (driver=%s version=%d)\n", conn.Driver(), version)
			return nil
		},
	}
}

//Personal.AI order the ending
