// Package server initializes and runs the AliasVault server.
// It opens the database, selects the ephemeral cache backend, wires the
// services and starts the REST and gRPC transports with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/config"
	"github.com/dmitrijs2005/aliasvault/internal/server/ephemeral"
	"github.com/dmitrijs2005/aliasvault/internal/server/httpapi"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aliasvault/internal/server/retention"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/aliasvault/internal/server/grpc"
)

const (
	ephemeralSweepSpec = "@every 1m"
	shutdownTimeout    = 10 * time.Second
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	cache        ephemeral.Cache
	redis        *redis.Client
	limiter      *redis_rate.Limiter
	archiver     *services.S3Archiver
	authService  *services.AuthService
	vaultService *services.VaultService
}

// newRedisClient is a seam for tests.
var newRedisClient = func(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(c, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	policy := retention.DefaultPolicy()
	if len(c.RetentionPolicy) > 0 {
		p, err := retention.ParsePolicy(c.RetentionPolicy)
		if err != nil {
			return nil, fmt.Errorf("retention policy: %w", err)
		}
		policy = p
	}

	app := &App{config: c, logger: logger, db: db, repomanager: repomanager.NewPostgresRepositoryManager()}

	if c.RedisAddr != "" {
		app.redis = newRedisClient(c.RedisAddr)
		app.limiter = redis_rate.NewLimiter(app.redis)
	}

	switch c.EphemeralBackend {
	case "", "memory":
		mc, err := ephemeral.NewMemoryCache(ephemeralSweepSpec)
		if err != nil {
			return nil, fmt.Errorf("ephemeral cache: %w", err)
		}
		app.cache = mc
	case "redis":
		if app.redis == nil {
			return nil, errors.New("ephemeral backend redis requires a redis address")
		}
		app.cache = ephemeral.NewRedisCache(app.redis)
	default:
		return nil, fmt.Errorf("unknown ephemeral backend %q", c.EphemeralBackend)
	}

	var archiver services.Archiver
	if c.ArchiveEnabled {
		app.archiver = services.NewS3Archiver(c)
		archiver = app.archiver
	}

	app.vaultService = services.NewVaultService(db, app.repomanager, policy, archiver, logger)
	app.authService = services.NewAuthService(db, app.repomanager, app.vaultService, app.cache, c, logger)

	return app, nil
}

// router builds the REST handler.
func (app *App) router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	d := httpapi.Deps{
		Auth:               app.authService,
		Vaults:             app.vaultService,
		Limiter:            app.limiter,
		RateLimitPerSecond: app.config.RateLimitPerSecond,
		TrustedProxies:     app.config.TrustedProxies,
		JWTSecret:          []byte(app.config.SecretKey),
		Logger:             app.logger,
	}
	if app.archiver != nil {
		d.Archive = app.archiver
	}
	return httpapi.NewRouter(d)
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.vaultService, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migrations failed", "error", err)
		app.close(ctx)
		return
	}

	jobs, err := newMaintenance(app.db, app.repomanager, app.config.AuthLogRetention, app.logger).start(ctx)
	if err != nil {
		app.logger.Error(ctx, "maintenance jobs", "error", err)
		app.close(ctx)
		return
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	<-jobs.Stop().Done()
	app.close(ctx)
	app.logger.Info(ctx, "Stopped")
}

func (app *App) close(ctx context.Context) {
	closers := []io.Closer{app.cache, app.db}
	if app.redis != nil {
		closers = append(closers, app.redis)
	}
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			app.logger.Warn(ctx, "close", "error", err)
		}
	}
}
