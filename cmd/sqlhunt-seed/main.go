package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlhunt/sqlhunt/internal/cases"
	casespostgres "github.com/sqlhunt/sqlhunt/internal/cases/postgres"
	"github.com/sqlhunt/sqlhunt/internal/config"
	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/fixtures"
	"github.com/sqlhunt/sqlhunt/internal/observability"
	s3store "github.com/sqlhunt/sqlhunt/internal/storage/s3"
)

// sqlhunt-seed installs the built-in case definitions into the app database
// and loads their fixture datasets into the investigations store. With
// -publish it also uploads each dataset as parquet artifacts; with
// -from-artifacts it loads previously published artifacts instead of
// generating datasets locally.
func main() {
	publish := flag.Bool("publish", false, "upload fixture datasets as parquet artifacts")
	fromArtifacts := flag.Bool("from-artifacts", false, "load datasets from published artifacts instead of generating")
	flag.Parse()

	cfg, err := config.LoadFromEnv("sqlhunt-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx := context.Background()

	appDB, err := casespostgres.Open(ctx, casespostgres.DBConfig{
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

	definitions := cases.Definitions()
	if err := cases.Install(ctx, casespostgres.NewStore(appDB), definitions); err != nil {
		logger.Error("failed to install case definitions", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("installed case definitions", slog.Int("count", len(definitions)))

	investigationsDB, err := executor.OpenStore(ctx, executor.StoreConfig{
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

	loader := fixtures.NewLoader(investigationsDB, cfg.Investigations.Driver)
	if err := loader.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create investigation tables", slog.Any("error", err))
		os.Exit(1)
	}

	var artifacts *s3store.Store
	if *publish || *fromArtifacts {
		artifacts, err = s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Artifacts.Endpoint,
			Region:           cfg.Artifacts.Region,
			Bucket:           cfg.Artifacts.Bucket,
			AccessKeyID:      cfg.Artifacts.AccessKeyID,
			SecretAccessKey:  cfg.Artifacts.SecretAccessKey,
			UseSSL:           cfg.Artifacts.UseSSL,
			Prefix:           cfg.Artifacts.Prefix,
			AutoCreateBucket: cfg.Artifacts.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize artifact store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	for _, def := range definitions {
		var dataset fixtures.Dataset
		if *fromArtifacts {
			dataset, err = fixtures.FetchDataset(ctx, artifacts, def.ID)
		} else {
			dataset, err = fixtures.Generate(def.ID)
		}
		if err != nil {
			logger.Error("failed to build dataset", slog.String("case_id", def.ID), slog.Any("error", err))
			os.Exit(1)
		}

		if err := loader.LoadDataset(ctx, dataset); err != nil {
			logger.Error("failed to load dataset", slog.String("case_id", def.ID), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("loaded dataset", slog.String("case_id", def.ID))

		if *publish {
			if err := fixtures.PublishDataset(ctx, artifacts, dataset); err != nil {
				logger.Error("failed to publish dataset", slog.String("case_id", def.ID), slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("published dataset artifacts", slog.String("case_id", def.ID))
		}
	}
}
