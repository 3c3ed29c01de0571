package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"signal_engine/internal/modules/audit"
	"signal_engine/internal/modules/cache"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/dashboard"
	"signal_engine/internal/modules/health"
	"signal_engine/internal/modules/market"
	"signal_engine/internal/modules/notify"
	"signal_engine/internal/modules/paper"
	"signal_engine/internal/modules/postgres"
	"signal_engine/internal/runner"
	"signal_engine/pkg/logger"
	"signal_engine/pkg/tracing"
)

// initObservability: логгер и трейсер до старта остальных модулей.
func initObservability(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(cfg.ServiceName)
	tracing.SetServiceName(cfg.ServiceName)
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	_, closeTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closeTracer()
			logger.Sync()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		config.Module(),
		fx.Module("observability", fx.Invoke(initObservability)),
		postgres.Module(),
		audit.Module(),
		cache.Module(),
		health.Module(),
		market.Module(),
		paper.Module(),
		notify.Module(),
		dashboard.Module(),
		runner.Module(),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}
	logger.Info("[MAIN] signal engine started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("[MAIN] shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("[MAIN] stop: %v", err)
	}
}
