package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nbp-rates/internal/config"
	"nbp-rates/internal/db"
	"nbp-rates/internal/events"
	"nbp-rates/internal/handler"
	"nbp-rates/internal/job"
	"nbp-rates/internal/logging"
	"nbp-rates/internal/metrics"
	"nbp-rates/internal/provider"
	"nbp-rates/internal/repository"
	"nbp-rates/internal/service"
	"nbp-rates/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "nbp-rates/docs"
)

var (
	loadConfigFunc   = config.Load
	initLoggingFunc  = logging.Init
	initTracerFunc   = tracing.InitTracer
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = events.InitRedis
	newProviderFunc  = func(tracer trace.Tracer, cfg config.NBP) service.ObservationSource {
		return provider.NewNBPProvider(tracer, cfg.BaseURL, cfg.Timeout)
	}
	startSyncJobFunc = func(j *job.ArchiveSyncJob, ctx context.Context) {
		go func() {
			if err := j.Start(ctx); err != nil {
				slog.Error("archive sync job stopped", "error", err)
			}
		}()
	}
	newRouterFunc          = gin.Default
	exitFunc               = os.Exit
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           NBP Rates API
// @version         1.0
// @description     Historical NBP exchange rates for arbitrary date ranges.

// @host      localhost:8080
// @BasePath  /
func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		exitFunc(1)
	}
}

func run() error {
	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	initLoggingFunc(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, cfg.Tracing.Enabled, cfg.Tracing.Endpoint)
	if err != nil {
		return errors.Wrap(err, "initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down tracer provider", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	// Postgres and Redis are optional: without them the archive and its
	// events are switched off.
	var repo service.ObservationRepository
	if cfg.Storage.DatabaseURL != "" {
		pool, err := initPostgresFunc(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = repository.NewObservationRepository(pool, tracer)
	} else {
		slog.Warn("DATABASE_URL not set, archive disabled")
	}

	var publisher service.EventPublisher
	if cfg.Storage.RedisURL != "" {
		rdb, err := initRedisFunc(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		publisher = events.NewPublisher(rdb)
	} else {
		slog.Warn("REDIS_URL not set, sync events disabled")
	}

	syncCurrencies, err := cfg.SyncCurrencies()
	if err != nil {
		return err
	}

	fetcher := service.NewRangeFetcher(tracer, newProviderFunc(tracer, cfg.NBP),
		service.WithDaysLimit(cfg.NBP.DaysLimit),
		service.WithConcurrency(cfg.NBP.Concurrency),
		service.WithMetrics(m),
	)
	archive := service.NewArchiveService(tracer, fetcher, repo, publisher, m)
	syncJob := job.NewArchiveSyncJob(tracer, archive, cfg.Sync.Cron, syncCurrencies, cfg.Sync.Days)
	if archive.Enabled() {
		startSyncJobFunc(syncJob, ctx)
	}

	h := handler.New(tracer, fetcher, archive, syncJob)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: r,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	slog.Info("server listening", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(stopped)
	}()

	select {
	case <-stopped:
	case err := <-serverErr:
		return errors.Wrap(err, "listen")
	}
	slog.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	slog.Info("server exiting")
	return nil
}
