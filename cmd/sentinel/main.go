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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"PortfolioSentinel/internal/analysis"
	"PortfolioSentinel/internal/cache"
	"PortfolioSentinel/internal/config"
	"PortfolioSentinel/internal/gateway"
	"PortfolioSentinel/internal/hub"
	"PortfolioSentinel/internal/logging"
	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/notifier"
	"PortfolioSentinel/internal/provider"
	"PortfolioSentinel/internal/recorder"
	"PortfolioSentinel/internal/risk"
	"PortfolioSentinel/internal/scheduler"
)

func main() {
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("PortfolioSentinel starting", zap.String("config", cfgPath))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quoteCache := newCache(ctx, cfg, logger, m)
	chain := provider.BuildChain(provider.ChainConfig{
		PolygonKey:       cfg.Providers.Polygon.APIKey,
		PolygonRate:      cfg.Providers.Polygon.RatePerMinute,
		AlphaVantageKey:  cfg.Providers.AlphaVantage.APIKey,
		AlphaVantageRate: cfg.Providers.AlphaVantage.RatePerMinute,
		YahooEnabled:     cfg.Providers.Yahoo.Enabled,
		Timeout:          cfg.Providers.Timeout,
		Proxy:            cfg.Proxy,
	}, logger, m)
	logger.Info("provider chain", zap.Strings("order", chain.Names()))

	gw := gateway.New(quoteCache, chain, logger, m)

	analyzer := analysis.New(gw, logger)
	analyzer.Benchmark = cfg.Risk.Benchmark
	analyzer.Days = cfg.Risk.Days
	analyzer.RiskFreeRate = cfg.Risk.RiskFreeRate
	if cfg.Risk.VaRMethod == "parametric" {
		analyzer.VaRMethod = risk.Parametric
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			provider.NewHTTPClient(30*time.Second, cfg.Proxy), logger)
		sender = tn
	}

	prices := hub.New(logger)

	sched := scheduler.NewScheduler(ctx, gw, analyzer, prices, sender, rec, scheduler.Options{
		Interval:      cfg.Broadcast.Interval,
		RetryBackoff:  cfg.Broadcast.RetryBackoff,
		BatchSize:     cfg.Broadcast.BatchSize,
		ReportCron:    cfg.Report.Cron,
		PortfolioName: cfg.Portfolio.Name,
		Holdings:      cfg.Portfolio.Holdings,
	}, logger, m)
	if err := sched.RegisterAll(); err != nil {
		logger.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, running risk report now")
		go sched.RunReportNow()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws/prices", prices)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"healthy"}`)
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("PortfolioSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("PortfolioSentinel stopped")
}

func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) cache.Cache {
	if cfg.Cache.Backend == "redis" {
		rc := cache.NewRedis(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, cfg.Cache.TTL, logger, m)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, falling back to memory cache", zap.Error(err))
			rc.Close()
			return cache.NewMemory(cfg.Cache.TTL, m)
		}
		return rc
	}
	return cache.NewMemory(cfg.Cache.TTL, m)
}
