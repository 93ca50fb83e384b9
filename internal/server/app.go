// Package server initializes and runs the main application server.
// It resolves the root encryption key, configures the vault storage
// backend and revocation list, wires the HTTP endpoint, and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/logging"
	"github.com/hushh-ai/consentvault/internal/mediator"
	"github.com/hushh-ai/consentvault/internal/server/config"
	"github.com/hushh-ai/consentvault/internal/server/httpapi"
	"github.com/hushh-ai/consentvault/internal/server/metrics"
	"github.com/hushh-ai/consentvault/internal/vault"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	server *http.Server
	db     *sql.DB
}

// defaultResources is the declarative resource table registered with the
// mediator at startup: resource name -> scope an agent must present.
var defaultResources = map[string]consent.Scope{
	"user_email_data":      consent.ScopeReadEmail,
	"user_finance_data":    consent.ScopeReadFinance,
	"user_files":           consent.ScopeWriteFile,
	"shopping_preferences": consent.ScopeShoppingPurchase,
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewDefault()

	rootKey, err := cfg.RootKey()
	if err != nil {
		return nil, fmt.Errorf("root key: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	repo, err := app.newRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tokens := consent.NewService([]byte(cfg.SigningSecret), app.newRevocationList())

	store, err := vault.NewService(repo, rootKey, logger)
	if err != nil {
		return nil, err
	}

	med := mediator.New(tokens, store, logger)
	for name, scope := range defaultResources {
		if err := med.RegisterResource(name, scope); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	handler := httpapi.NewRouter(tokens, med, store, logger, metrics.New(reg), reg)

	app.server = &http.Server{Addr: cfg.EndpointAddrHTTP, Handler: handler}
	return app, nil
}

// newRepository selects the vault storage backend from config.
func (app *App) newRepository(ctx context.Context) (vault.Repository, error) {
	switch app.config.Backend {
	case config.BackendMemory:
		return vault.NewMemoryRepository(), nil
	case config.BackendFile:
		return vault.NewFileRepository(app.config.FileVaultDir)
	case config.BackendPostgres:
		db, err := sql.Open("pgx", app.config.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}
		if err := vault.RunMigrations(ctx, db); err != nil {
			return nil, err
		}
		app.db = db
		return vault.NewPostgresRepository(db), nil
	case config.BackendS3:
		return vault.NewS3Repository(ctx, vault.S3Options{
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
			AccessKey:    app.config.S3RootUser,
			SecretKey:    app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown vault backend %q", app.config.Backend)
	}
}

// newRevocationList returns the shared Redis-backed list when an address
// is configured, otherwise the in-process one.
func (app *App) newRevocationList() consent.RevocationList {
	if app.config.RedisAddr == "" {
		return consent.NewMemoryRevocationList()
	}
	client := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	return consent.NewRedisRevocationList(client)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting server",
		"addr", app.config.EndpointAddrHTTP, "backend", app.config.Backend)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if app.db != nil {
		return app.db.Close()
	}
	return nil
}
