package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teatak/freqseg/cache"
	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/internal/bootstrap"
	"github.com/teatak/freqseg/logger"
	"github.com/teatak/freqseg/metrics"
	"github.com/teatak/freqseg/segmenter"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Logging)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	seg, closeSource, err := bootstrap.NewSegmenter(ctx, cfg, log, segmenter.WithObserver(m))
	if err != nil {
		return fmt.Errorf("creating segmenter: %w", err)
	}
	defer closeSource()

	srv := &server{
		seg:     seg,
		metrics: m,
		logger:  log.With(zap.String("component", "http")),
		maxBody: cfg.Server.MaxBodyBytes,
	}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		srv.cache = cache.New(rdb,
			cache.WithTTL(cfg.Redis.CacheTTL),
			cache.WithLogger(log),
			cache.WithRecorder(m),
		)
		if err := srv.cache.Ping(ctx); err != nil {
			log.Warn("redis unreachable, serving without cache hits", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	var gatherer prometheus.Gatherer = prometheus.Gatherers{}
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.routes(gatherer),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
