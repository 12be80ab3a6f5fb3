package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"iinfinder/internal/access"
	"iinfinder/internal/autosearch"
	"iinfinder/internal/cache"
	cachestore "iinfinder/internal/cache/store"
	"iinfinder/internal/captcha"
	"iinfinder/internal/notify"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/httpserver"
	"iinfinder/internal/platform/logger"
	"iinfinder/internal/platform/metrics"
	redisclient "iinfinder/internal/platform/redis"
	"iinfinder/internal/platform/sqldb"
	"iinfinder/internal/platform/supervisor"
	"iinfinder/internal/registry/confirmation"
	"iinfinder/internal/registry/screening"
	"iinfinder/internal/search"
	"iinfinder/internal/searchlog"
	httptransport "iinfinder/internal/transport/http"
	"iinfinder/pkg/requestcontext"
)

// main wires dependencies and hands every long-lived loop to the supervisor.
// Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := sqldb.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	health := map[string]httptransport.HealthChecker{"database": db}

	st, closeStore, err := openCacheStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()
	if hc, ok := st.(httptransport.HealthChecker); ok {
		health["cache"] = hc
	}

	tiered, err := cache.New(st, cfg.Cache.ScreeningTTL, cfg.Cache.ConfirmationTTL,
		cache.WithLogger(log), cache.WithMetrics(m))
	if err != nil {
		return err
	}

	library, missing, err := captcha.LoadDir(cfg.Captcha.TemplatesDir)
	if err != nil {
		return fmt.Errorf("captcha.templates_dir must hold 0b.png..9i.png: %w", err)
	}
	if len(missing) > 0 {
		log.Warn("captcha glyph templates missing", "dir", cfg.Captcha.TemplatesDir, "missing", missing)
	}
	solver, err := captcha.NewSolver(library,
		captcha.WithThreshold(cfg.Captcha.Threshold),
		captcha.WithCropTop(cfg.Captcha.CropTop))
	if err != nil {
		return err
	}

	screener, err := screening.New(cfg.Screening, screening.WithLogger(log), screening.WithMetrics(m))
	if err != nil {
		return err
	}
	confirmer, err := confirmation.New(cfg.Confirmation, solver, confirmation.WithLogger(log), confirmation.WithMetrics(m))
	if err != nil {
		return err
	}

	searchSvc, err := search.New(tiered, screener, confirmer, cfg.Search,
		search.WithLogger(log), search.WithMetrics(m))
	if err != nil {
		return err
	}

	logStore := searchlog.NewStore(db)
	accessStore := access.NewStore(db)
	requester, err := search.NewRequester(searchSvc, logStore, accessStore, cfg.Quota,
		search.WithRequesterLogger(log), search.WithRequesterMetrics(m))
	if err != nil {
		return err
	}

	notifier, err := notify.New(ctx, cfg.Notify, log, m)
	if err != nil {
		return err
	}
	defer notifier.Close()

	autoSvc, err := autosearch.New(autosearch.NewSQLStore(db), searchSvc, logStore, notifier, cfg.AutoSearch,
		autosearch.WithLogger(log), autosearch.WithMetrics(m))
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Searcher:   requester,
		Confirmer:  searchSvc,
		AutoSearch: autoSvc,
		Access:     accessStore,
		Health:     health,
		Metrics:    m,
		Gatherer:   reg,
		Logger:     log,
	}, cfg.Server.AdminToken)

	tree := supervisor.New(log, supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddAPI(supervisor.NewHTTPService(httpserver.New(cfg.Server, router), cfg.Server.ShutdownTimeout))

	every := func(name string, interval time.Duration, fn func(ctx context.Context) error) {
		tree.AddBackground(supervisor.NewPeriodic(name, interval, fn, supervisor.WithLogger(log)))
	}
	every("autosearch-scheduler", cfg.AutoSearch.Interval, func(ctx context.Context) error {
		res, err := autoSvc.RunOnce(ctx)
		if res.Claimed > 0 {
			log.InfoContext(ctx, "auto-search pass",
				"claimed", res.Claimed,
				"matched", res.Matched,
				"pending", res.Pending,
				"failed", res.Failed,
			)
		}
		return err
	})
	every("screening-cache-sweep", cfg.Cache.ScreeningSweep, discardCount(tiered.SweepScreening))
	every("confirmation-cache-sweep", cfg.Cache.ConfirmationSweep, discardCount(tiered.SweepConfirmation))
	every("autosearch-retention", cfg.AutoSearch.RetentionSweep, discardCount(autoSvc.SweepExpired))
	every("searchlog-retention", cfg.SearchLog.Sweep, func(ctx context.Context) error {
		n, err := logStore.RemoveOlderThan(ctx, requestcontext.Now(ctx).Add(-cfg.SearchLog.Retention))
		m.AddSweepDeleted("search_log", n)
		return err
	})
	every("access-list-sweep", cfg.Access.Sweep, func(ctx context.Context) error {
		n, err := accessStore.RemoveExpiredAt(ctx, requestcontext.Now(ctx))
		m.AddSweepDeleted("access_list", n)
		return err
	})

	log.Info("starting iinfinder",
		"addr", cfg.Server.Addr,
		"database", cfg.Database.Driver,
		"cache_backend", cfg.Cache.Backend,
		"notify_driver", cfg.Notify.Driver,
	)
	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		log.Warn("services did not stop in time", "count", len(report))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("iinfinder stopped")
	return nil
}

// openCacheStore picks the cache backend. The returned close func is safe
// to call for every backend.
func openCacheStore(ctx context.Context, cfg *config.Config, db *sqldb.DB) (cachestore.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		st := cachestore.NewRedisStore(client.Client, cfg.Cache.ScreeningTTL, cfg.Cache.ConfirmationTTL)
		return redisStore{RedisStore: st, client: client}, func() { _ = client.Close() }, nil
	case "memory":
		return cachestore.NewInMemoryStore(), func() {}, nil
	default:
		return cachestore.NewSQLStore(db), func() {}, nil
	}
}

// redisStore exposes the client's ping next to the cache operations.
type redisStore struct {
	*cachestore.RedisStore
	client *redisclient.Client
}

func (r redisStore) Health(ctx context.Context) error {
	return r.client.Health(ctx)
}

func discardCount(fn func(ctx context.Context) (int64, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}
