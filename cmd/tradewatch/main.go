package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/aggregator"
	"github.com/Aidin1998/tradewatch/internal/config"
	"github.com/Aidin1998/tradewatch/internal/coordinator"
	"github.com/Aidin1998/tradewatch/internal/detector/layering"
	"github.com/Aidin1998/tradewatch/internal/detector/washtrade"
	"github.com/Aidin1998/tradewatch/internal/server"
	"github.com/Aidin1998/tradewatch/internal/store"
	"github.com/Aidin1998/tradewatch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	layeringCfg, err := layering.NewConfig(
		cfg.Detection.OrdersWindow,
		cfg.Detection.CancelWindow,
		cfg.Detection.OppositeTradeWindow,
	)
	if err != nil {
		zapLogger.Fatal("Invalid layering config", zap.Error(err))
	}
	washCfg, err := washtrade.NewConfig(cfg.Detection.WashWindow)
	if err != nil {
		zapLogger.Fatal("Invalid wash trading config", zap.Error(err))
	}

	coord, err := coordinator.New(coordinator.Config{
		MaxRetries:    cfg.Coordinator.MaxRetries,
		CallTimeout:   cfg.Coordinator.CallTimeout,
		BackoffBase:   cfg.Coordinator.BackoffBase,
		CacheCapacity: cfg.Coordinator.CacheCapacity,
	}, sugar)
	if err != nil {
		zapLogger.Fatal("Failed to create coordinator", zap.Error(err))
	}

	var detStore store.DetectionStore
	if cfg.Store.Enabled {
		s, err := store.NewSQLiteStore(cfg.Store.Path, sugar)
		if err != nil {
			zapLogger.Fatal("Failed to open detection store", zap.Error(err))
		}
		detStore = s
	}

	detectors := []coordinator.Detector{
		layering.New(layeringCfg, sugar),
		washtrade.New(washCfg, sugar),
	}

	srv := server.New(
		zapLogger,
		coord,
		aggregator.New(sugar),
		detectors,
		cfg.Coordinator.CallTimeout,
		detStore,
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		zapLogger.Info("Starting surveillance service", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
