package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tironinho/kronos-sub000/internal/bootstrap"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
	"github.com/tironinho/kronos-sub000/pkg/questdb"
	"github.com/tironinho/kronos-sub000/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)),
	)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	var questdbClient questdb.Client
	if cfg.QuestDB.Host != "" {
		client, err := questdb.NewClient(ctx, cfg.QuestDB)
		if err != nil {
			appLogger.Warn("QuestDB unavailable, ledger persistence disabled",
				logger.Field{Key: "error", Value: err.Error()},
			)
		} else {
			questdbClient = client
			defer client.Close()
		}
	}

	var redisClient redis.Client
	if len(cfg.Redis.Addrs) > 0 {
		client := redis.NewClient(appLogger, &cfg.Redis)
		if err := client.Connect(ctx); err != nil {
			appLogger.Warn("Redis unavailable, snapshot persistence disabled",
				logger.Field{Key: "error", Value: err.Error()},
			)
		} else {
			redisClient = client
			defer client.Disconnect(context.Background())
		}
	}

	b := (&bootstrap.Bootstrap{}).Init(bootstrap.BootstrapConfig{
		Config:  cfg,
		Logger:  appLogger,
		QuestDB: questdbClient,
		Redis:   redisClient,
	})

	if err := b.Usecase.Channel.Connect(ctx); err != nil {
		appLogger.Error(err)
		os.Exit(1)
	}
	defer b.Usecase.Channel.Close()

	if err := b.Usecase.Pipeline.Start(ctx); err != nil {
		appLogger.Error(err)
		os.Exit(1)
	}

	go b.Usecase.Orchestrator.Run(ctx)

	if err := b.Usecase.Reconciler.Start(ctx); err != nil {
		appLogger.Error(err)
		os.Exit(1)
	}
	defer b.Usecase.Reconciler.Stop()

	appLogger.Info("engine started",
		logger.Field{Key: "app", Value: cfg.App.Name},
		logger.Field{Key: "environment", Value: cfg.App.Environment},
		logger.Field{Key: "symbols", Value: cfg.MarketData.Symbols},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("shutdown signal received",
			logger.Field{Key: "signal", Value: sig.String()},
		)
	case err := <-b.Usecase.Pipeline.Fatal():
		appLogger.Error(err)
	}

	shutdown(&b, appLogger, cancel)
}

// shutdown stops intake, cancels queued trades, and tries to flatten every
// working order before the process exits.
func shutdown(b *bootstrap.Bootstrap, appLogger logger.Interface, cancel context.CancelFunc) {
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	cancelled := b.Usecase.Orchestrator.CancelAllTrades("")
	if cancelled > 0 {
		appLogger.Info("queued trades cancelled on shutdown",
			logger.Field{Key: "count", Value: cancelled},
		)
	}

	if err := b.Usecase.OrderManager.KillSwitch(shutdownCtx); err != nil {
		appLogger.Error(err)
	}

	b.Usecase.Alerts.Close()
	appLogger.Info("engine stopped")
}
