package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/config"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/reporting"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/store"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, found, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if !found {
		logger.Info("no .env file found, relying on system env vars")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite Store
	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize SQLite store", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer sqliteStore.Close()

	var cache store.Cache = store.NewMemoryCache(cfg.CacheTTL)
	if len(cfg.RedisAddrs) > 0 {
		rc := store.NewRedisCache(cfg.RedisAddrs, cfg.RedisPass, "khata", cfg.CacheTTL)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process cache", zap.Strings("addrs", cfg.RedisAddrs), zap.Error(err))
			rc.Close()
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	storage := store.NewCachedStore(sqliteStore, cache, logger)

	l := ledger.NewLedger(storage, interest.Calculator{Location: cfg.Location}, logger)
	if err := l.Refresh(ctx, store.Authoritative); err != nil {
		logger.Fatal("failed to load ledger", zap.Error(err))
	}
	go l.Run(ctx, cfg.RefreshInterval)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := reporting.NewMetrics(reg)

	var publisher reporting.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := reporting.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}
	reporter := reporting.NewReporter(l.Aggregator(), metrics, publisher, logger)
	go reporter.Run(ctx, l.View())

	server := NewServer(l, storage, cfg.Location, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
