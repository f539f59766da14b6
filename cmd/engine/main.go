// Package main - entry point for the learner state engine service.
//
// The engine maintains live per-learner session state for entrance-exam
// preparation: every learning event is folded into cognitive, comprehension,
// metacognitive and motivational estimates, and the adaptation loop turns
// those estimates into concrete difficulty and intervention decisions.
//
// Architecture follows Clean Architecture and DDD:
// - Domain: estimators, session state, learner profiles - no external deps
// - Application: session manager, adaptation loop, commands/queries
// - Infrastructure: profile store client, catalog client, Redis, PostgreSQL
// - Interface: HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/examprep-hub/learner-engine/config"
	"github.com/examprep-hub/learner-engine/internal/application/command"
	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/application/query"
	"github.com/examprep-hub/learner-engine/internal/domain/catalog"
	"github.com/examprep-hub/learner-engine/internal/domain/estimator"
	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	catalogclient "github.com/examprep-hub/learner-engine/internal/infrastructure/external/catalog"
	"github.com/examprep-hub/learner-engine/internal/infrastructure/external/profilestore"
	"github.com/examprep-hub/learner-engine/internal/infrastructure/messaging"
	"github.com/examprep-hub/learner-engine/internal/infrastructure/persistence/postgres"
	"github.com/examprep-hub/learner-engine/internal/infrastructure/persistence/redis"
	httpserver "github.com/examprep-hub/learner-engine/internal/interface/http"
	"github.com/examprep-hub/learner-engine/pkg/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Config{
		Level:   cfg.Observability.LogLevel,
		Format:  cfg.Observability.LogFormat,
		Service: cfg.App.Name,
	})
	slog.SetDefault(log)

	log.Info("starting learner state engine",
		"env", string(cfg.App.Environment),
		"version", version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PROFILE CACHE (Redis, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var profileCache learner.Cache
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		if cfg.Redis.URL != "" {
			redisCache, err = redis.NewCacheFromURL(cfg.Redis.URL)
		} else {
			redisCache, err = redis.NewCache(redis.Config{
				Host:         cfg.Redis.Host,
				Port:         cfg.Redis.Port,
				Password:     cfg.Redis.Password,
				DB:           cfg.Redis.DB,
				PoolSize:     cfg.Redis.PoolSize,
				MinIdleConns: cfg.Redis.MinIdleConns,
				DialTimeout:  cfg.Redis.DialTimeout,
				ReadTimeout:  cfg.Redis.ReadTimeout,
				WriteTimeout: cfg.Redis.WriteTimeout,
			})
		}
		if err != nil {
			// The engine degrades to default profiles without the cache, so a
			// missing Redis is a warning, not a startup failure.
			log.Warn("Redis unavailable, profile fallback cache disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			profileCache = redis.NewProfileCache(redisCache)
			log.Info("Redis connection established")
		}
	} else {
		log.Info("Redis disabled by config, profile fallback cache off")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ARCHIVE SINK (PostgreSQL, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var archiver session.Archiver
	var bufferedArchiver *postgres.BufferedArchiver
	var dbConn *postgres.Connection

	if !cfg.Database.Disabled {
		log.Info("connecting to database...")
		dbCfg := postgres.DefaultConfig(cfg.Database.URL)
		if cfg.Database.MaxOpenConns > 0 {
			dbCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		}
		if cfg.Database.MaxIdleConns > 0 {
			dbCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		}
		if cfg.Database.ConnMaxIdleTime > 0 {
			dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		}

		dbConn, err = postgres.NewConnection(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()
		log.Info("database connection established")

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")

		archiveRepo := postgres.NewArchiveRepository(dbConn)
		bufferedArchiver = postgres.NewBufferedArchiver(archiveRepo, cfg.Database.ArchiveBuffer, log)
		archiver = bufferedArchiver
	} else {
		log.Info("database disabled by config, session archival off")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	var profileStore learner.Store
	var profileClient *profilestore.Client

	if !cfg.ProfileStore.Disabled {
		psCfg := profilestore.DefaultClientConfig(cfg.ProfileStore.BaseURL)
		psCfg.APIKey = cfg.ProfileStore.APIKey
		psCfg.Logger = log
		if cfg.ProfileStore.RequestTimeout > 0 {
			psCfg.Timeout = cfg.ProfileStore.RequestTimeout
		}
		if cfg.ProfileStore.RateLimit > 0 {
			psCfg.RateLimiterConfig.RequestsPerMinute = cfg.ProfileStore.RateLimit
		}
		if cfg.ProfileStore.RateLimitBurst > 0 {
			psCfg.RateLimiterConfig.BurstSize = cfg.ProfileStore.RateLimitBurst
		}
		profileClient = profilestore.NewClient(psCfg)
		profileStore = profileClient
		log.Info("profile store client configured", "base_url", cfg.ProfileStore.BaseURL)
	} else {
		profileStore = profilestore.Disabled()
		log.Info("profile store disabled by config, sessions open degraded")
	}

	var methodCatalog catalog.Catalog
	if !cfg.Catalog.Disabled {
		catCfg := catalogclient.DefaultClientConfig(cfg.Catalog.BaseURL)
		catCfg.APIKey = cfg.Catalog.APIKey
		catCfg.Logger = log
		if cfg.Catalog.RequestTimeout > 0 {
			catCfg.Timeout = cfg.Catalog.RequestTimeout
		}
		if cfg.Catalog.CacheTTL > 0 {
			catCfg.CacheTTL = cfg.Catalog.CacheTTL
		}
		methodCatalog = catalogclient.NewClient(catCfg)
		log.Info("method catalog client configured", "base_url", cfg.Catalog.BaseURL)
	} else {
		methodCatalog = catalogclient.Disabled()
		log.Info("method catalog disabled by config, decisions skip method hints")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// Trigger firings are the engine's interventions; keep them visible in the
	// log stream even when no external consumer is attached.
	_ = eventBus.Subscribe(shared.EventTriggerFired, shared.EventHandlerFunc{
		HandlerName: "trigger-log",
		Fn: func(event shared.Event) error {
			log.Info("adaptation trigger fired",
				"session_id", event.AggregateID(),
				"payload", event.Payload())
			return nil
		},
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SESSION MANAGER & APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	manager := engine.NewManager(
		estimator.DefaultPolicy(),
		profileStore,
		profileCache,
		archiver,
		eventBus,
		engine.ManagerConfig{
			ProfileLookupTimeout:  cfg.Engine.ProfileLookupTimeout,
			ProfileLookupAttempts: cfg.Engine.ProfileLookupAttempts,
			ProfileCacheTTL:       cfg.Redis.ProfileTTL,
			Logger:                log,
		},
	)

	openSession := command.NewOpenSessionHandler(manager)
	processEvent := command.NewProcessEventHandler(manager, methodCatalog, log)
	closeSession := command.NewCloseSessionHandler(manager)
	getSnapshot := query.NewGetSnapshotHandler(manager)
	getProjection := query.NewGetProjectionHandler(manager)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.APIKeyHash = cfg.HTTP.APIKeyHash
	if cfg.HTTP.MaxBodyBytes > 0 {
		httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	}

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		OpenSession:   openSession,
		ProcessEvent:  processEvent,
		CloseSession:  closeSession,
		GetSnapshot:   getSnapshot,
		GetProjection: getProjection,
		Health: &healthChecker{
			db:      dbConn,
			redis:   redisCache,
			profile: profileClient,
		},
		Logger:  log,
		Version: version,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 9. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("learner state engine is running", "http_address", httpCfg.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	// Stop accepting requests first.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		shutdownErr = err
	}

	// Close remaining sessions so their records reach the archiver.
	manager.CloseAll(shutdownCtx)

	// Drain buffered archive writes before the database connection goes away.
	if bufferedArchiver != nil {
		if err := bufferedArchiver.Close(shutdownCtx); err != nil {
			log.Error("archive drain incomplete", "error", err, "pending", bufferedArchiver.Pending())
			shutdownErr = err
		}
	}

	// Event bus and database close via defers.

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
		return nil
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// healthChecker reports dependency health for the readiness endpoint. Absent
// (disabled) dependencies are omitted rather than reported unhealthy.
type healthChecker struct {
	db      *postgres.Connection
	redis   *redis.Cache
	profile *profilestore.Client
}

func (h *healthChecker) Check(ctx context.Context) map[string]bool {
	checks := make(map[string]bool)
	if h.db != nil {
		checks["database"] = h.db.Ping(ctx) == nil
	}
	if h.redis != nil {
		checks["redis"] = h.redis.Ping(ctx) == nil
	}
	if h.profile != nil {
		checks["profile_store"] = h.profile.IsHealthy(ctx)
	}
	return checks
}
