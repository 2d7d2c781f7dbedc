package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"fuel-station-monitor/internal/config"
	"fuel-station-monitor/internal/logger"
)

const startTimeout = 30 * time.Second

func main() {
	var cfg *config.Config

	app := fx.New(
		fx.Provide(
			config.Load,
			provideLogger,
			provideDatabase,
			provideDispenserRepository,
			provideNozzleRepository,
			provideTankRepository,
			provideTransactionRepository,
			provideDiagnosticsRepository,
			provideHub,
			provideNotifier,
			provideCalibrationCache,
			provideDeduplicator,
			provideDiagnostics,
			provideCollector,
			provideStateTracking,
			provideConnectivity,
			provideProcessor,
			provideIngestionClient,
			provideDailySalesJob,
			provideRateLimiter,
			provideHTTPServer,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(registerLifecycle),
		fx.Populate(&cfg),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), startTimeout)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			fmt.Fprintln(os.Stderr, "Application did not start within 30s; check database and broker connectivity")
		}
		fmt.Fprintln(os.Stderr, "Failed to start application:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Monitor exited")
	logger.Sync()
}
