package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/turtacn/tokenlife/internal/app"
	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// options shared by every subcommand
type rootOptions struct {
	configFile string
	verbose    bool
}

// NewRootCommand builds the `tokenlife-admin` command tree.
// NewRootCommand 构建 tokenlife-admin 命令树。
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tokenlife-admin",
		Short: "Administer the token lifecycle service",
		Long: `tokenlife-admin performs maintenance on the token service database:
schema migrations, user creation and refresh token session management.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at info level")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newUsersCommand(opts),
		newSessionsCommand(opts),
	)
	return rootCmd
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration with a logger that stays quiet unless --verbose.
func (o *rootOptions) loadConfig() (*config.Config, logger.Logger, error) {
	level := "warn"
	if o.verbose {
		level = "info"
	}
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: level, Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadConfig(log, o.configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withContainer builds the service container, runs fn and releases it.
func (o *rootOptions) withContainer(ctx context.Context, fn func(*app.Container) error) error {
	cfg, log, err := o.loadConfig()
	if err != nil {
		return err
	}
	container, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()
	return fn(container)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

//Personal.AI order the ending
