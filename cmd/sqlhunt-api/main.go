package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlhunt/sqlhunt/internal/api"
	"github.com/sqlhunt/sqlhunt/internal/auth"
	"github.com/sqlhunt/sqlhunt/internal/cases"
	casespostgres "github.com/sqlhunt/sqlhunt/internal/cases/postgres"
	"github.com/sqlhunt/sqlhunt/internal/catalog"
	"github.com/sqlhunt/sqlhunt/internal/config"
	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/fixtures"
	"github.com/sqlhunt/sqlhunt/internal/observability"
	"github.com/sqlhunt/sqlhunt/internal/sqlguard"
	"github.com/sqlhunt/sqlhunt/internal/tasks"
	taskspostgres "github.com/sqlhunt/sqlhunt/internal/tasks/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlhunt-api")
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

	caseStore := casespostgres.NewStore(appDB)
	caseService := cases.NewService(caseStore)
	inspector := catalog.NewIntrospector(investigationsDB, cfg.Investigations.Driver, fixtures.ColumnHelp)
	schemaCatalog := catalog.New(caseService, inspector)
	validator := sqlguard.NewValidator(sqlguard.DefaultRuleset(cfg.Validator.RowLimit))
	// The catalog is the runner's table source so a case without tables fails
	// submission as not-found instead of leaking into validation.
	runner := tasks.NewRunner(taskspostgres.NewStore(appDB), validator, schemaCatalog, logger)

	deps := api.Dependencies{
		Logger:  logger,
		Cases:   caseService,
		Catalog: schemaCatalog,
		Runner:  runner,
		Readiness: api.CombineReadinessChecks(
			caseStore.HealthCheck,
			api.CheckInvestigationsDSN(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		keyValidator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, keyValidator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
