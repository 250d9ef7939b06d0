package main

import (
	"coin_wallet/internal/api"     // Custom package for API handlers
	"coin_wallet/internal/config"  // Custom package for configuration
	"coin_wallet/internal/db"      // Database connection and migration
	"coin_wallet/internal/lock"    // Wallet locks
	"coin_wallet/internal/notify"  // Employee notifications
	"coin_wallet/internal/voucher" // Voucher catalog and redemption
	"coin_wallet/internal/wallet"  // Wallet manager
	"context"                      // context package is needed for Redis operations and shutdown
	"errors"                       // Error inspection
	"net/http"                     // HTTP server
	"os"                           // Signals
	"os/signal"                    // Signal handling
	"syscall"                      // SIGTERM
	"time"                         // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to the database and bring the schema up to date
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Setup Redis client; without an address the service runs uncached with in-process locks
	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Wallet lock: in-process unless several replicas share the database
	var locker lock.Locker = lock.NewKeyed()
	if cfg.LockBackend == "redis" {
		if redisClient == nil {
			logrus.Fatal("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
		locker = lock.NewRedis(redisClient, cfg.LockTTL, cfg.LockWait)
	}

	// Notification sink, delivered off the request path
	var sink notify.Sink = notify.LogSink{Logger: logrus.StandardLogger()}
	switch cfg.NotifySink {
	case "redis":
		if redisClient == nil {
			logrus.Fatal("NOTIFY_SINK=redis requires REDIS_ADDR")
		}
		sink = notify.NewRedisStreamSink(redisClient, cfg.NotifyStream)
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			logrus.Fatal("NOTIFY_SINK=kafka requires KAFKA_BROKERS")
		}
		kafkaSink := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaSink.Close()
		sink = kafkaSink
	}
	dispatcher := notify.NewDispatcher(sink, cfg.NotifyWorkers, cfg.NotifyBuffer)
	defer dispatcher.Close()

	// Services
	opts := []wallet.Option{
		wallet.WithLocker(locker),
		wallet.WithLockWait(cfg.LockWait),
		wallet.WithNotifier(dispatcher),
	}
	if redisClient != nil {
		opts = append(opts, wallet.WithCache(redisClient, cfg.CacheTTL))
	}
	wallets := wallet.NewManager(gdb, opts...)
	catalog := voucher.NewCatalog(gdb)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.RegisterRoutes(r, api.Deps{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Wallets:   wallets,
		Catalog:   catalog,
		Redeemer:  voucher.NewRedeemer(catalog, wallets),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Stop on Ctrl-C or SIGTERM, letting in-flight redemptions finish
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}
