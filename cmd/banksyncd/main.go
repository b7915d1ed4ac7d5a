package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os/signal"
	"syscall"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	banksync "github.com/goliatone/go-banksync"
	"github.com/goliatone/go-banksync/inbound"
	banksyncmigrations "github.com/goliatone/go-banksync/migrations"
	"github.com/goliatone/go-banksync/providers/monzo"
	sqlstore "github.com/goliatone/go-banksync/store/sql"
)

type persistenceConfig struct {
	cfg appConfig
}

func (p persistenceConfig) GetDebug() bool                { return p.cfg.DebugSQL }
func (p persistenceConfig) GetDriver() string             { return p.cfg.Driver }
func (p persistenceConfig) GetServer() string             { return p.cfg.DSN }
func (p persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (p persistenceConfig) GetOtelIdentifier() string     { return "banksyncd" }

func main() {
	logger := newSlogLogger("banksyncd")

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		logger.Fatal("open database", "driver", cfg.Driver, "error", err)
	}
	if cfg.Driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg}, sqlDB, dialectFor(cfg.Driver))
	if err != nil {
		logger.Fatal("persistence client", "error", err)
	}
	defer client.Close()

	if err := registerMigrations(ctx, client, cfg.Driver); err != nil {
		logger.Fatal("register migrations", "error", err)
	}
	if err := client.Migrate(ctx); err != nil {
		logger.Fatal("migrate", "error", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		logger.Fatal("store factory", "error", err)
	}

	providerClient, err := monzo.NewClient(monzo.Config{
		BaseURL:      cfg.MonzoBaseURL,
		ClientID:     cfg.Sync.Provider.ClientID,
		ClientSecret: cfg.Sync.Provider.ClientSecret,
	})
	if err != nil {
		logger.Fatal("provider client", "error", err)
	}

	svc, err := banksync.Setup(cfg.Sync,
		banksync.WithLogger(logger),
		banksync.WithLoggerProvider(slogProvider{}),
		banksync.WithProviderClient(providerClient),
		banksync.WithRepositoryFactory(factory),
		banksync.WithPersistenceClient(client),
	)
	if err != nil {
		logger.Fatal("service setup", "error", err)
	}

	go func() {
		if err := svc.RunTokenRefreshLoop(ctx); err != nil && ctx.Err() == nil {
			logger.Error("token refresh loop stopped", "error", err)
		}
	}()
	go func() {
		if err := svc.RunAccountPollLoop(ctx); err != nil && ctx.Err() == nil {
			logger.Error("account poll loop stopped", "error", err)
		}
	}()

	dispatcher := inbound.NewDispatcher(svc, logger)
	app := newRouter(svc, dispatcher, cfg)

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	svc.WaitDetached()
	logger.Info("stopped")
}

func dialectFor(driver string) schema.Dialect {
	if driver == "postgres" {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

func registerMigrations(ctx context.Context, client *persistence.Client, driver string) error {
	target := banksyncmigrations.DialectSQLite
	if driver == "postgres" {
		target = banksyncmigrations.DialectPostgres
	}
	_, err := banksyncmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, banksyncmigrations.WithValidationTargets(target))
	return err
}
