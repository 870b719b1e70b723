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
	"go.uber.org/zap"

	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/internal/bootstrap"
	"github.com/teatak/freqseg/logger"
	"github.com/teatak/freqseg/metrics"
	"github.com/teatak/freqseg/segmenter"
	"github.com/teatak/freqseg/stream"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	metricsAddr := flag.String("metrics-addr", ":9102", "Address for the /metrics endpoint (empty disables it)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Logging)
	defer log.Sync()

	if err := run(cfg, *metricsAddr, log); err != nil {
		log.Fatal("worker failed", zap.Error(err))
	}
}

func run(cfg *config.Config, metricsAddr string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// The worker commits offsets only after a result is published, so the
	// dictionary is loaded before the first fetch.
	cfg.Dictionary.Preload = true
	seg, closeSource, err := bootstrap.NewSegmenter(ctx, cfg, log, segmenter.WithObserver(m))
	if err != nil {
		return fmt.Errorf("creating segmenter: %w", err)
	}
	defer closeSource()

	if cfg.Metrics.Enabled && metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler(reg))
		metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer metricsServer.Close()
	}

	w := stream.NewWorker(cfg.Kafka, seg, stream.WithLogger(log), stream.WithRecorder(m))
	defer w.Close()
	return w.Run(ctx)
}
