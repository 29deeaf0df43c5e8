// Package server wires the emoticons backend together: configuration,
// storage backends, the HTTP API and the gRPC health endpoint, and runs
// them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/emoticons/internal/logging"
	"github.com/dmitrijs2005/emoticons/internal/server/auth"
	"github.com/dmitrijs2005/emoticons/internal/server/cache"
	"github.com/dmitrijs2005/emoticons/internal/server/config"
	"github.com/dmitrijs2005/emoticons/internal/server/emoticons"
	gs "github.com/dmitrijs2005/emoticons/internal/server/grpc"
	"github.com/dmitrijs2005/emoticons/internal/server/httpapi"
	"github.com/dmitrijs2005/emoticons/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/emoticons/internal/server/services"
	"github.com/dmitrijs2005/emoticons/internal/server/storage"
	"github.com/gofiber/fiber/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.Cache
	http        *fiber.App
	grpc        *gs.GRPCServer
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      c.LogLevel,
		FilePath:   c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		Compress:   true,
	})
	if logger == nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	if err != nil {
		logger.Warn(context.Background(), "log file unavailable, logging to stdout", "error", err)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	presence := newCache(c)

	store, err := newStore(c)
	if err != nil {
		_ = db.Close()
		_ = presence.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tokens := auth.NewTokenService(c.SecretKey, c.TokenIssuer, c.TokenAudience, c.AccessTokenValidityDuration)
	users := services.NewUserService(db, rm, tokens, c.BcryptCost, logger)

	fetcher := emoticons.NewHTTPFetcher(emoticons.NewUpstreamClient(c.UpstreamTimeout), c.UpstreamURL, c.UpstreamRetries)
	coordinator := emoticons.NewCoordinator(presence, store, fetcher, fillTimeout(c), logger)

	opts := httpapi.Options{
		Users:             users,
		Emoticons:         coordinator,
		Logger:            logger,
		PublicPrefix:      c.PublicFilesPrefix,
		FetchRequiresAuth: c.FetchRequiresAuth,
	}
	if fs, ok := store.(*storage.FileStore); ok && c.ServeMedia {
		opts.MediaDir = fs.BasePath()
	}

	httpApp, err := httpapi.NewApp(opts)
	if err != nil {
		_ = db.Close()
		_ = presence.Close()
		return nil, fmt.Errorf("http init error: %w", err)
	}

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, c.HealthCheckInterval,
		gs.Check{Name: "postgres", Ping: db.PingContext},
		gs.Check{Name: "cache", Ping: presence.Ping},
	)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		cache:       presence,
		http:        httpApp,
		grpc:        grpcServer,
	}, nil
}

func newCache(c *config.Config) cache.Cache {
	if c.CacheBackend == config.CacheMemory {
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(c.RedisAddr(), c.RedisPassword, c.RedisDB, c.CacheKeyPrefix)
}

func newStore(c *config.Config) (storage.Store, error) {
	if c.StorageBackend == config.StorageS3 {
		return storage.NewS3Store(context.Background(), storage.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			PresignTTL:   c.S3PresignTTL,
		})
	}
	return storage.NewFileStore(c.MediaDir, c.PublicFilesPrefix)
}

// fillTimeout bounds one coalesced fetch: every upstream attempt plus the
// storage write.
func fillTimeout(c *config.Config) time.Duration {
	return c.UpstreamTimeout*time.Duration(c.UpstreamRetries+1) + 30*time.Second
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

func (app *App) startHTTPServer(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)
		errCh <- app.http.Listen(app.config.EndpointAddrHTTP, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return app.http.ShutdownWithContext(shutdownCtx)
}

// Run migrates the schema, serves HTTP and gRPC until ctx is cancelled or a
// termination signal arrives, then releases the database and cache.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	defer app.close(ctx)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.startHTTPServer(gctx)
	})
	g.Go(func() error {
		return app.grpc.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "server stopped with error", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	if err := app.cache.Close(); err != nil {
		app.logger.Warn(ctx, "cache close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
}
