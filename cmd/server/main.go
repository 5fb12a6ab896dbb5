package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/tokenlife/internal/app"
	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/infrastructure/consumers"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	grpcapi "github.com/turtacn/tokenlife/internal/interfaces/grpc"
	httpapi "github.com/turtacn/tokenlife/internal/interfaces/http"
	"github.com/turtacn/tokenlife/internal/interfaces/http/handlers"
	"github.com/turtacn/tokenlife/internal/interfaces/http/middleware"
	"github.com/turtacn/tokenlife/pkg/logger"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "tokenlife-server",
		Short:         "Serve the token lifecycle HTTP API and internal introspection gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config.yaml")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("tokenlife-server: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		return err
	}

	// Load config
	cfg, err := config.LoadConfig(startupLogger, configFile)
	if err != nil {
		return err
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	if err := config.Watch(appLogger, configFile, func(next *config.Config) {
		appLogger.SetLevel(next.Log.Level)
		appLogger.Info(context.Background(), "Log level reloaded", logger.String("level", next.Log.Level))
	}); err != nil {
		appLogger.Warn(ctx, "Config watcher not started", logger.Err(err))
	}

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// Initialize stores and services
	container, err := app.New(ctx, cfg, appLogger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	checkers := map[string]handlers.HealthChecker{"database": container.DB}
	if container.Redis != nil {
		checkers["redis"] = container.Redis
	}

	router := httpapi.NewRouter(cfg, appLogger, container.Metrics,
		handlers.NewHealthHandler(checkers, appLogger),
		handlers.NewAuthHandler(container.AuthService, container.SessionService, &cfg.JWT, appLogger),
		handlers.NewUserHandler(container.AuthService, &cfg.JWT),
		middleware.RequireAccessToken(container.Verifier, appLogger),
		middleware.LoginRateLimit(container.RateLimiter, monitoring.NewMetricsAdapter(container.Metrics), &cfg.RateLimit, appLogger),
	)

	var grpcServer *grpcapi.Server
	var grpcListener net.Listener
	if cfg.Server.GRPCEnabled {
		grpcListener, err = net.Listen("tcp", cfg.Server.GRPCAddress())
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer = grpcapi.NewServer(container.Verifier, appLogger)
	}

	var consumer *consumers.RevocationConsumer
	if cfg.Kafka.ConsumerEnabled {
		consumer = consumers.NewRevocationConsumer(&cfg.Kafka, container.SessionService, appLogger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(router.Start)
	if grpcServer != nil {
		g.Go(func() error { return grpcServer.Serve(grpcListener) })
	}
	if consumer != nil {
		g.Go(func() error {
			consumer.Start(gctx)
			return nil
		})
	}

	// 等待退出信号或任一组件失败
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()

		if err := router.Stop(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP shutdown failed", err)
		}
		if grpcServer != nil {
			grpcServer.Stop(shutdownCtx)
		}
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				appLogger.Error(shutdownCtx, "Revocation consumer shutdown failed", err)
			}
		}
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "Tracer shutdown failed", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), "Server stopped with error", err)
		return err
	}
	appLogger.Info(context.Background(), "Server stopped")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}

//Personal.AI order the ending
