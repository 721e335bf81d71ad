// Package main is the attendance engine worker. It owns the database schema,
// materializes each day's sessions from the timetable, keeps leaderboards
// warm and exposes Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/attendance-hub/attendance-engine/config"
	"github.com/attendance-hub/attendance-engine/internal/application"
	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/messaging"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/persistence/postgres"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/persistence/redis"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/scheduler"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/scheduler/jobs"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/retry"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// eventBus is what the worker needs from either bus implementation.
type eventBus interface {
	shared.EventBus
	Close() error
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Pretty:    cfg.Observability.LogFormat == "console",
		AddCaller: !cfg.IsProduction(),
	}).With(logger.String("app", cfg.App.Name), logger.String("version", cfg.App.Version))

	timeutil.SetLocation(cfg.App.Location)
	log.Info("starting attendance worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	opts := append(retry.Startup(),
		retry.WithMaxAttempts(cfg.Database.ConnectAttempts),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Warn("database not ready", logger.Int("attempt", attempt), logger.Duration("retry_in", delay), logger.Err(err))
		}),
	)
	db, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg)
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		applied, err := postgres.NewMigrator(db).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("schema up to date", logger.Int("applied", applied))
	}

	achievements := postgres.NewAchievementRepository(db)
	repos := application.Repositories{
		Slots:        postgres.NewSlotRepository(db),
		Sessions:     postgres.NewSessionRepository(db),
		Marks:        postgres.NewMarkRepository(db),
		Enrollments:  postgres.NewEnrollmentRepository(db),
		History:      postgres.NewHistoryRepository(db),
		Achievements: achievements,
	}

	if path := cfg.Attendance.AchievementCatalog; path != "" {
		if err := seedAchievements(ctx, path, achievements, log); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (OPTIONAL) AND EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 8,
		Middleware: []messaging.Middleware{
			messaging.LoggingMiddleware(log),
			messaging.RetryMiddleware(retry.WithMaxAttempts(3), retry.WithInitialDelay(100*time.Millisecond)),
		},
		Logger: log,
	}

	var (
		bus   eventBus
		cache leaderboard.Cache
	)
	if cfg.Redis.Enabled() {
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		cache = redis.NewLeaderboardCache(redis.NewCache(client, "attendance:"))
		rbus, err := messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
			Client:  client,
			Channel: cfg.Redis.EventChannel,
			Local:   busCfg,
			Logger:  log,
		})
		if err != nil {
			return fmt.Errorf("failed to start event bus: %w", err)
		}
		bus = rbus
		log.Info("redis enabled", logger.String("addr", cfg.Redis.Addr))
	} else {
		bus = messaging.NewInMemoryEventBus(busCfg)
		log.Warn("redis disabled, leaderboards are computed on every read")
	}
	defer bus.Close()

	engine, err := application.NewEngine(repos, application.Options{
		LockPolicy:         attendance.LockPolicy{RequireMarks: cfg.Attendance.RequireMarksToLock},
		DefaulterThreshold: cfg.Attendance.DefaulterThreshold,
		LeaderboardTTL:     cfg.Attendance.LeaderboardCacheTTL,
		Cache:              cache,
		Bus:                bus,
		Logger:             log,
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
		Logger:     log,
	})
	if cfg.Scheduler.Enabled {
		if err := sched.Register(cfg.Scheduler.MaterializeSpec, jobs.NewMaterializeSessionsJob(engine, log)); err != nil {
			return err
		}
		if cache != nil {
			if err := sched.Register(cfg.Scheduler.WarmupSpec, jobs.NewWarmLeaderboardsJob(engine, log)); err != nil {
				return err
			}
		}

		// Catch up on a day that started while the worker was down.
		if _, err := sched.RunNow(ctx, "materialize_sessions"); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. METRICS ENDPOINT
	// ─────────────────────────────────────────────────────────────────────────
	var srv *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := db.Ping(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		srv = &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			log.Info("metrics listening", logger.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", logger.Err(err))
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if cfg.Scheduler.Enabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("scheduler shutdown", logger.Err(err))
		}
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown", logger.Err(err))
		}
	}

	log.Info("worker stopped")
	return nil
}

func connectRedis(ctx context.Context, rc config.RedisConfig) (*goredis.Client, error) {
	rcfg := redis.DefaultConfig()
	rcfg.Addr = rc.Addr
	rcfg.Password = rc.Password
	rcfg.DB = rc.DB
	rcfg.PoolSize = rc.PoolSize
	rcfg.MinIdleConns = rc.MinIdleConns
	rcfg.DialTimeout = rc.DialTimeout
	rcfg.ReadTimeout = rc.ReadTimeout
	rcfg.WriteTimeout = rc.WriteTimeout

	client, err := retry.DoWithData(ctx, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, rcfg)
	}, retry.Startup()...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func seedAchievements(ctx context.Context, path string, repo *postgres.AchievementRepository, log *logger.Logger) error {
	defs, err := config.LoadAchievementCatalog(path)
	if err != nil {
		return err
	}
	for _, d := range defs {
		if err := repo.Upsert(ctx, d); err != nil {
			return fmt.Errorf("seed achievement %q: %w", d.ID, err)
		}
	}
	log.Info("achievement catalog seeded", logger.String("path", path), logger.Int("count", len(defs)))
	return nil
}
