// Package app wires the aegis server runtime: config, logging, storage,
// the session engine, HTTP routes, and the background sweeper.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"aegis/cmd/directory"
	authapi "aegis/cmd/internal/auth/api"
	"aegis/cmd/internal/auth/session"
	"aegis/cmd/security/password"
)

// App is the aegis server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics  *Metrics
	sessions *session.Service
	sweeper  *session.Sweeper
	auth     *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	metrics := NewMetrics()

	var (
		dir       directory.Directory
		store     session.Store
		dbPool    *pgxpool.Pool
		dbEnabled bool
	)
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		dir = directory.NewMemoryDirectory()
		store = session.NewMemoryStore()
	} else {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("db.enabled.postgres_store")

		pgDir, err := directory.NewPostgresDirectory(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pgStore, err := session.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}

		dir = pgDir
		store = session.NewRetryingStore(pgStore, 3, 50*time.Millisecond)
		dbPool = pool
		dbEnabled = true
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}
	hasher, err := password.FromEnv()
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	sessions, err := session.NewService(sessCfg, log, dir, store, hasher, session.NewMetrics(metrics.Registry))
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), dir, sessions, hasher, dbPool)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	var sweeper *session.Sweeper
	if cfg.SweeperEnabled {
		sweeper = session.NewSweeper(sessions, log)
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   metrics,
		sessions:  sessions,
		sweeper:   sweeper,
		auth:      auth,
	}, nil
}

// Run starts the HTTP server and the sweeper, blocking until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log, a.metrics),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		if a.sweeper != nil {
			a.sweeper.Run(sweepCtx)
		}
	}()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "error", err)
		runErr = err
	}

	stopSweeper()
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown_failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return runErr
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
