package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	casespostgres "github.com/sqlhunt/sqlhunt/internal/cases/postgres"
	"github.com/sqlhunt/sqlhunt/internal/config"
	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/observability"
	"github.com/sqlhunt/sqlhunt/internal/tasks"
	taskspostgres "github.com/sqlhunt/sqlhunt/internal/tasks/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlhunt-worker")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	appDB, err := casespostgres.Open(context.Background(), casespostgres.DBConfig{
		DSN:             cfg.AppDB.DSN,
		MaxOpenConns:    cfg.AppDB.MaxOpenConns,
		MaxIdleConns:    cfg.AppDB.MaxIdleConns,
		ConnMaxIdleTime: cfg.AppDB.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.AppDB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open app db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = appDB.Close() }()

	investigationsDB, err := executor.OpenStore(context.Background(), executor.StoreConfig{
		Driver:       cfg.Investigations.Driver,
		DSN:          cfg.Investigations.DSN,
		MaxOpenConns: cfg.Investigations.MaxOpenConns,
		MaxIdleConns: cfg.Investigations.MaxIdleConns,
	})
	if err != nil {
		logger.Error("failed to open investigations store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = investigationsDB.Close() }()

	worker := &tasks.Worker{
		Store:  taskspostgres.NewStore(appDB),
		Engine: executor.NewEngine(investigationsDB, cfg.Investigations.QueryTimeout),
		Config: tasks.WorkerConfig{
			ConsumerID:   cfg.Worker.ConsumerID,
			LeaseSeconds: cfg.Worker.LeaseSeconds,
			PollInterval: cfg.Worker.PollInterval,
		},
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("query worker started", slog.String("consumer_id", cfg.Worker.ConsumerID))
	if err := worker.Run(ctx); err != nil {
		logger.Error("query worker failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("query worker stopped")
}
