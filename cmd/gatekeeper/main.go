// cmd/gatekeeper/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gatekeeper/internal/alerts"
	"gatekeeper/internal/audit"
	"gatekeeper/internal/catalog"
	"gatekeeper/internal/chat/rest"
	commonaws "gatekeeper/internal/common/aws"
	"gatekeeper/internal/common/config"
	"gatekeeper/internal/common/database"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/observability"
	"gatekeeper/internal/conversation"
	"gatekeeper/internal/decision"
	"gatekeeper/internal/interview"
	"gatekeeper/internal/notify"
	"gatekeeper/internal/review"
	"gatekeeper/internal/router"
	"gatekeeper/internal/server"
	"gatekeeper/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting gatekeeper...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) with retry ---
	var indexer *audit.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = audit.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Operator alerts (optional) ---
	var alerter alerts.Alerter = alerts.NoopAlerter{}
	if cfg.Alerts.Email.Enabled || cfg.Alerts.SNS.Enabled {
		var sesClient alerts.SESAPI
		var snsClient alerts.SNSAPI
		if cfg.Alerts.Email.Enabled {
			c, err := commonaws.NewSESClient(ctx, cfg.Alerts.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client initialization failed", zap.Error(err))
			}
			sesClient = c
		}
		if cfg.Alerts.SNS.Enabled {
			c, err := commonaws.NewSNSClient(ctx, cfg.Alerts.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client initialization failed", zap.Error(err))
			}
			snsClient = c
		}
		alerter = alerts.NewOpsAlerter(cfg.Alerts, sesClient, snsClient, log)
		zapLog.Info("Operator alerting initialized")
	}

	// --- Interview catalog ---
	cat := catalog.Default()
	if cfg.Interview.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.Interview.CatalogPath)
		if err != nil {
			zapLog.Fatal("catalog load failed", zap.Error(err))
		}
		zapLog.Info("Interview catalog loaded",
			zap.String("path", cfg.Interview.CatalogPath),
			zap.Int("questions", cat.Len()),
		)
	}

	// --- Chat platform client ---
	chatClient := rest.New(cfg.Chat.BaseURL, cfg.Chat.Token,
		time.Duration(cfg.Chat.Timeout)*time.Millisecond)

	// --- Wire the pipeline ---
	apps := store.NewPostgresStore(pg.DB, log)
	communities := store.NewPostgresCommunityStore(pg.DB)

	opener := conversation.NewOpener(chatClient, chatClient, log)
	dispatcher := review.NewDispatcher(apps, communities, cat, chatClient, alerter, log)
	startLock := interview.NewRedisStartLock(redisClient.Client,
		time.Duration(cfg.Interview.StartLockSec)*time.Second)
	engine := interview.NewEngine(apps, communities, cat, opener, chatClient,
		dispatcher, startLock, obs, log)
	notifier := notify.NewNotifier(chatClient, chatClient, log)
	workflow := decision.NewWorkflow(apps, communities, chatClient, chatClient,
		chatClient, opener, notifier, indexer, log)
	rt := router.New(engine, workflow, communities, chatClient, chatClient, obs, log)

	// --- Webhook server ---
	webhooks := &http.Server{
		Addr:    cfg.App.ListenAddr,
		Handler: server.New(rt, log).Handler(),
	}
	go func() {
		zapLog.Info("Webhook server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := webhooks.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("webhook server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, nil); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Abandoned-attempt sweeper ---
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		interval := time.Duration(cfg.Interview.SweepMinutes) * time.Minute
		ttl := time.Duration(cfg.Interview.TTLHours) * time.Hour
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				engine.SweepStale(sweepCtx, ttl)
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := webhooks.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down webhook server", zap.Error(err))
	}

	zapLog.Info("Gatekeeper stopped gracefully")
}
