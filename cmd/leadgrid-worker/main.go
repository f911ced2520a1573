// Command leadgrid-worker is the process entrypoint: it loads
// configuration, connects the browser pool and Redis-backed job queue,
// wires the Job Runner into a jobqueue.Worker, and serves /healthz and
// /metrics (spec.md §6's out-of-scope HTTP API façade is not this process's
// job; this is the worker side, the nearest analogue of the teacher's
// runner/webrunner.webrunner wired through a go-chi mux).
package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/leadgrid/leadgrid/browserpool"
	"github.com/leadgrid/leadgrid/credits"
	"github.com/leadgrid/leadgrid/deduper"
	"github.com/leadgrid/leadgrid/emailverify"
	"github.com/leadgrid/leadgrid/geocatalog"
	"github.com/leadgrid/leadgrid/jobqueue"
	"github.com/leadgrid/leadgrid/jobrunner"
	"github.com/leadgrid/leadgrid/pkg/config"
	"github.com/leadgrid/leadgrid/pkg/resilience"
	"github.com/leadgrid/leadgrid/pkg/telemetry"
	"github.com/leadgrid/leadgrid/progressbus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	pool := browserpool.New(cfg.BrowserWSEndpointPrivate, cfg.RendererCapacity, metrics)
	if err := pool.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("initial browser pool connect failed; will retry on first page acquisition")
	}

	catalog := geocatalog.New()

	queue, bus, redisClient := newQueueAndBus(cfg, log)

	worker := &jobqueue.Worker{
		Queue:       queue,
		Bus:         bus,
		Credits:     newCreditsService(cfg),
		Concurrency: cfg.JobQueueConcurrency,
		Run: (&jobrunner.Runner{
			Catalog:            catalog,
			Pool:               pool,
			Log:                log,
			Workers:            cfg.ScraperConcurrency,
			MinPopulationFloor: cfg.MinPopulationFloor,
			EmailSem:           semaphore.NewWeighted(int64(cfg.EmailAPIConcurrency)),
			EmailPagesMax:      cfg.EmailPagesMax,
			EmailTimeoutMS:     cfg.EmailTimeoutMS,
			EmailAPITimeout:    cfg.EmailAPITimeout,
			Resolver:           net.DefaultResolver,
			VerifyConfig:       verifyConfigFrom(cfg),
			NewDedup:           newDedupFactory(cfg, log),
		}).Run,
	}

	health := newHealthChecker(ctx, pool, redisClient)

	healthSrv := newHealthServer(cfg.MetricsAddr, registry, health)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Error().Err(err).Msg("worker stopped")
		}
	}()
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)
	_ = pool.Shutdown()
	health.Stop()
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var writer io.Writer = os.Stdout
	if cfg.LogPretty {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(writer).Level(level).With().Timestamp().Caller().Logger()
	if cfg.LogsPerSecondLimit > 0 {
		logger = logger.Sample(&zerolog.BurstSampler{
			Burst:  uint32(cfg.LogsPerSecondLimit),
			Period: time.Second,
		})
	}
	return logger
}

// newQueueAndBus prefers Redis, falling back to the in-memory backends when
// the configured address can't be dialed at startup — the same
// degrade-don't-crash posture RedisHealthCheck documents for an
// already-running process.
func newQueueAndBus(cfg config.Config, log zerolog.Logger) (jobqueue.Queue, progressbus.Bus, *redis.Client) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup; using in-memory queue/bus")
		return jobqueue.NewInMemoryQueue(256), progressbus.NewInMemoryBus(), client
	}
	return jobqueue.NewRedisQueue(client), progressbus.NewRedisBus(client), client
}

// newDedupFactory returns nil when DEDUP_DB_PATH is unset, so jobrunner.Runner
// falls back to its default per-run in-memory Deduper. When set, each factory
// call opens its own SQLite-backed Deduper against the shared path; the
// handle lives for one Run call, but the keys stay in the database file, so
// a detail URL seen by an earlier job is skipped by later jobs as well.
func newDedupFactory(cfg config.Config, log zerolog.Logger) func() deduper.Deduper {
	if cfg.DedupDBPath == "" {
		return nil
	}
	return func() deduper.Deduper {
		dd, err := deduper.NewPersistentSQLite(cfg.DedupDBPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.DedupDBPath).Msg("dedup db open failed; falling back to in-memory dedup for this run")
			return deduper.New()
		}
		return dd
	}
}

func newCreditsService(cfg config.Config) credits.Service {
	if cfg.CreditServiceURL == "" {
		return credits.NewUnlimitedStub()
	}
	return credits.NewHTTPClient(cfg.CreditServiceURL, cfg.CreditServiceAPIKey)
}

func verifyConfigFrom(cfg config.Config) emailverify.Config {
	return emailverify.Config{
		FallbackOnSMTPBlocked: cfg.EmailFallbackOnSMTPError,
		SMTP: emailverify.SMTPConfig{
			Port:           cfg.SMTPPort,
			ConnectTimeout: time.Duration(cfg.SMTPConnectTimeoutMS) * time.Millisecond,
			CommandTimeout: time.Duration(cfg.SMTPCommandTimeoutMS) * time.Millisecond,
			HELOHost:       cfg.HELOHost,
			MailFrom:       cfg.MailFrom,
			TryStartTLS:    cfg.SMTPTryStartTLS,
			CatchallProbe:  cfg.SMTPCatchallProbe,
		},
	}
}

func newHealthChecker(ctx context.Context, pool *browserpool.Pool, redisClient *redis.Client) *resilience.HealthChecker {
	hc := resilience.NewHealthChecker()
	hc.AddCheck(resilience.BrowserPoolHealthCheck(func(ctx context.Context) error {
		page, err := pool.AcquirePage(ctx, browserpool.DefaultPolicy())
		if err != nil {
			return err
		}
		pool.ReleasePage(page)
		return nil
	}))
	hc.AddCheck(resilience.RedisHealthCheck(func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}))
	_ = hc.Start(ctx)
	return hc
}

func newHealthServer(addr string, registry *prometheus.Registry, health *resilience.HealthChecker) *http.Server {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health.IsHealthy() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unhealthy"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
