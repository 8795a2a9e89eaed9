// Package app wires the vidtube server runtime: config, logging, storage,
// metrics and the account HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vidtube/cmd/identity"
	"vidtube/cmd/identity/migrations"
	authapi "vidtube/cmd/internal/auth/api"
	"vidtube/cmd/internal/auth/lifecycle"
	"vidtube/cmd/internal/auth/session"
	"vidtube/cmd/security/password"
	"vidtube/cmd/security/token"
)

// App is the vidtube server runtime. It owns the DB pool and cache client.
type App struct {
	cfg Config
	log Logger

	dbPool  *pgxpool.Pool
	views   *identity.ViewCache
	metrics *Metrics

	auth *authapi.Handler
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	authCfg := authapi.LoadConfigFromEnv()
	if err := ValidateSecurityConfig(cfg, authCfg); err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("token config: %w", err)
	}
	issuer, err := session.NewIssuerFromConfig(sessCfg)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	fp, err := token.FingerprinterFromEnv(cfg.Production())
	if err != nil {
		return nil, fmt.Errorf("token fingerprint: %w", err)
	}
	if !fp.Keyed() {
		log.Warn("security.fingerprint.unkeyed", "hint", "set "+token.HMACEnvKey)
	}

	store, pool, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	views, err := identity.NewViewCache(ctx, cacheConfig(cfg), log)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	sessions := session.NewService(sessCfg, issuer, store, fp)
	svc := lifecycle.NewService(
		lifecycle.Config{
			RevokeSessionsOnPasswordChange: cfg.RevokeSessionsOnPasswordChange,
			StoreTimeout:                   sessCfg.StoreTimeout,
		},
		log, store, password.NewPool(pwCfg), sessions,
		lifecycle.WithViewCache(views),
	)

	metrics := NewMetrics()
	auth, err := authapi.NewHandler(log, authCfg, svc, authapi.WithMetrics(metrics))
	if err != nil {
		_ = views.Close()
		closePool(pool)
		return nil, err
	}

	log.Info("app.wired",
		"env", cfg.Env,
		"store", storeKind(pool),
		"cache", cfg.RedisAddr != "",
		"token_format", string(sessCfg.Format),
	)

	return &App{
		cfg:     cfg,
		log:     log,
		dbPool:  pool,
		views:   views,
		metrics: metrics,
		auth:    auth,
	}, nil
}

// Handler returns the full HTTP stack. Metrics wrap the mux directly so the
// matched route pattern is visible to them.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.metrics, a.auth)

	var h http.Handler = a.metrics.Middleware(mux)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, a.log)
	h = WithRequestID(h)
	return h
}

// Run starts the HTTP server and blocks until context cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbPool != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.Close()
		return err
	}

	a.Close()
	a.log.Info("server.stopped")
	return nil
}

// Close releases the cache client and the DB pool.
func (a *App) Close() {
	if a.views != nil {
		if err := a.views.Close(); err != nil {
			a.log.Error("cache.close.fail", "err", err)
		}
	}
	closePool(a.dbPool)
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

// newStore decides between the Postgres store and the in-memory dev store.
// The app owns the pool; PostgresStore never closes it.
func newStore(ctx context.Context, cfg Config, log Logger) (identity.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(), nil, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DBAutoMigrate {
		if err := Migrate(ctx, pool, migrations.Up); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("db.migrated")
	}

	st, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return st, pool, nil
}

func cacheConfig(cfg Config) identity.CacheConfig {
	cc := identity.DefaultCacheConfig()
	cc.Enabled = cfg.RedisAddr != ""
	if cc.Enabled {
		cc.Addr = cfg.RedisAddr
	}
	cc.Password = cfg.RedisPassword
	cc.DB = cfg.RedisDB
	cc.TTL = nonZeroDuration(cfg.CacheTTL, cc.TTL)
	return cc
}

func storeKind(pool *pgxpool.Pool) string {
	if pool != nil {
		return "postgres"
	}
	return "memory"
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
