// Command limiterd runs the rate limiter service: the decision engine,
// its persistence backend, and the HTTP surface.
//
// Configuration is read from the environment (a .env file is loaded if
// present):
//
//	LIMITERD_ADDR   listen address (default ":8080")
//	LIMITERD_STORE  backend: memory | mongo | redis (default "memory")
//	MONGO_URL       MongoDB connection string (mongo backend)
//	DB_NAME         MongoDB database name (default "limiterd")
//	REDIS_ADDR      Redis address (redis backend, default "localhost:6379")
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/krishna-kudari/limiterd"
	"github.com/krishna-kudari/limiterd/api"
	"github.com/krishna-kudari/limiterd/metrics"
	"github.com/krishna-kudari/limiterd/store"
	"github.com/krishna-kudari/limiterd/store/memory"
	limitermongo "github.com/krishna-kudari/limiterd/store/mongo"
	limiterredis "github.com/krishna-kudari/limiterd/store/redis"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()
	registry := limiterd.NewRegistry(st)
	analytics := limiterd.NewAnalytics(limiterd.DefaultRingSize)
	writer := limiterd.NewLogWriter(st, logger,
		limiterd.WithDropHook(collector.LogDropped))
	gateway := limiterd.NewGateway(st, registry, analytics,
		limiterd.WithLogger(logger),
		limiterd.WithLogWriter(writer),
		limiterd.WithObserver(collector))
	driver := limiterd.NewLoadDriver(gateway)
	server := api.NewServer(st, gateway, driver, api.WithServerLogger(logger))

	addr := envOr("LIMITERD_ADDR", ":8080")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		writer.Close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	// Drain queued decision records before closing the store.
	writer.Close()
	return nil
}

func openStore(ctx context.Context, logger *zap.Logger) (store.ConfigStore, error) {
	backend := envOr("LIMITERD_STORE", "memory")
	switch backend {
	case "memory":
		logger.Info("using in-memory store")
		return memory.New(), nil
	case "mongo":
		uri := envOr("MONGO_URL", "mongodb://localhost:27017")
		db := envOr("DB_NAME", "limiterd")
		logger.Info("using mongodb store", zap.String("db", db))
		return limitermongo.New(ctx, uri, db)
	case "redis":
		addr := envOr("REDIS_ADDR", "localhost:6379")
		logger.Info("using redis store", zap.String("addr", addr))
		return limiterredis.New(ctx, addr)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
