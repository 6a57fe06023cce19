package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/coffee-cart/internal/adapter/handler"
	"github.com/rl1809/coffee-cart/internal/adapter/notify"
	"github.com/rl1809/coffee-cart/internal/adapter/storage"
	"github.com/rl1809/coffee-cart/internal/config"
	"github.com/rl1809/coffee-cart/internal/core/service"
	"github.com/rl1809/coffee-cart/internal/logger"
	"github.com/rl1809/coffee-cart/internal/port"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(logger.Options{Service: "coffee-cart", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Key-value store
	kv, closeKV, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()

	// Catalog
	catalog, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	// Notifications go to the log and to the session's inbox, returned
	// with the session's next cart response
	inbox, err := notify.NewInbox(cfg.SessionCapacity, cfg.NotifyBuffer)
	if err != nil {
		return err
	}

	sessions, err := service.NewSessions(cfg.CartNamespace, cfg.SessionCapacity, service.Deps{
		Store:    kv,
		Catalog:  catalog,
		Notifier: notify.Fanout{notify.NewLogNotifier(log), inbox},
		Logger:   log,
	})
	if err != nil {
		return err
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterCartServiceServer(grpcServer, handler.NewGRPCHandler(sessions, inbox, log))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handler.CartServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(sessions, catalog, inbox, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (port.KeyValueStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Warn("using in-memory cart storage, carts will not survive a restart")
		return storage.NewMemoryAdapter(), func() {}, nil
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 20,
		})
		kv := storage.NewRedisAdapter(rdb)
		if err := kv.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return kv, func() { rdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func openCatalog(ctx context.Context, cfg config.Config, log *zap.Logger) (port.CatalogRepository, func(), error) {
	embedded, err := storage.NewEmbeddedCatalog()
	if err != nil {
		return nil, nil, fmt.Errorf("load embedded catalog: %w", err)
	}

	switch cfg.CatalogSource {
	case config.CatalogEmbedded:
		return embedded, func() {}, nil
	case config.CatalogMySQL:
		if err := storage.MigrateCatalog(ctx, cfg.MySQLDSN); err != nil {
			return nil, nil, err
		}

		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}

		products, _ := embedded.List(ctx)
		if err := storage.SeedCatalog(ctx, db, products); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("mysql catalog ready", zap.Int("products", len(products)))
		return storage.NewMySQLCatalog(db), func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
}
