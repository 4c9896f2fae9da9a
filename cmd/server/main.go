package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Hussein-Osamaa/madas-inventory/internal/config"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository/memory"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository/mongodb"
	"github.com/Hussein-Osamaa/madas-inventory/internal/scheduler"
	"github.com/Hussein-Osamaa/madas-inventory/internal/server/handlers"
	"github.com/Hussein-Osamaa/madas-inventory/internal/server/router"
	auditsvc "github.com/Hussein-Osamaa/madas-inventory/internal/service/audit"
	inventorysvc "github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/broadcast"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/catalog"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/directory"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var store repository.Store
	switch cfg.MongoDB.Driver {
	case "memory":
		store = memory.New()
		baseLogger.Warn("using in-memory store, data will not survive restarts")
	default:
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()

		if err := mongoRepo.EnsureIndexes(context.Background()); err != nil {
			baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
		}

		if !mongoRepo.SupportsTransactions() {
			baseLogger.Warn("mongodb deployment has no multi-document transactions, " +
				"ledger and balance writes run sequentially (ledger stays authoritative)")
		}
		store = mongoRepo
	}

	var broadcaster broadcast.Broadcaster = broadcast.NewNoop()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			baseLogger.Fatal("failed to ping redis", zap.Error(err))
		}
		broadcaster = broadcast.NewRedis(redisClient)
		baseLogger.Info("real-time broadcasting enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		baseLogger.Warn("REDIS_ADDR not set, real-time broadcasting disabled")
	}

	catalogClient := catalog.NewClient(cfg.Catalog)
	directoryClient := directory.NewClient(cfg.Directory)

	inventoryService := inventorysvc.NewService(store, catalogClient, directoryClient, baseLogger.Named("svc.inventory"))
	auditService := auditsvc.NewService(store, inventoryService, catalogClient, directoryClient,
		broadcaster, cfg.Audit.DedupeWindow, baseLogger.Named("svc.audit"))

	inventoryHandler := handlers.NewInventoryHandler(inventoryService, baseLogger.Named("handlers.inventory"))
	auditHandler := handlers.NewAuditHandler(auditService, baseLogger.Named("handlers.audit"))
	engine := router.New(inventoryHandler, auditHandler, baseLogger.Named("router"))

	// Initialize Scheduler
	sched := scheduler.NewScheduler(*cfg, inventoryService, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
