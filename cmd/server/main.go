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
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/towerclash/towerclash-server/internal/config"
	"github.com/towerclash/towerclash-server/internal/game"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/lobby"
	"github.com/towerclash/towerclash-server/internal/repository"
	"github.com/towerclash/towerclash-server/internal/server"
	"github.com/towerclash/towerclash-server/internal/telemetry"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting towerclash server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	store, err := repository.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, logger)
	if err != nil {
		logger.Fatal("failed to open result store", zap.Error(err))
	}
	logger.Info("result store initialized", zap.String("driver", cfg.Storage.Driver))

	cat, err := catalog.Load(cfg.Game.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}
	logger.Info("card catalog loaded", zap.Int("cards", cat.Len()))

	if cfg.Replay.Dir != "" {
		if err := os.MkdirAll(cfg.Replay.Dir, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.Error(err))
		}
	}

	hub := server.NewHub(server.Config{
		PingInterval:   cfg.Server.WebSocket.PingInterval,
		WriteTimeout:   cfg.Server.WebSocket.WriteTimeout,
		ReadLimit:      cfg.Server.WebSocket.ReadLimit,
		SendBuffer:     cfg.Server.WebSocket.SendBuffer,
		AllowedOrigins: cfg.Server.WebSocket.AllowedOrigins,
	}, logger)

	registry := lobby.NewRegistry(cat, hub, store, lobby.Config{
		Settings: game.Settings{
			StartingEnergy: cfg.Game.StartingEnergy,
			MaxEnergy:      cfg.Game.MaxEnergy,
			HandSize:       cfg.Game.HandSize,
			TowerHP:        cfg.Game.TowerHP,
			DeckCopies:     cfg.Game.DeckCopies,
		},
		ThinkDelay:    cfg.AI.ThinkDelay,
		ContinueDelay: cfg.AI.ContinueDelay,
		AIName:        cfg.AI.Name,
		ReplayDir:     cfg.Replay.Dir,
		Seed:          cfg.Game.Seed,
	}, logger)
	hub.Attach(registry)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WebSocket.Path, hub)
	server.NewResultsHandler(store, cfg.Replay.Dir, logger).Register(mux)
	httpServer := &http.Server{
		Addr:              cfg.Server.WebSocket.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start WebSocket server
	go func() {
		logger.Info("starting WebSocket server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("path", cfg.Server.WebSocket.Path),
		)
		if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
			logger.Error("WebSocket server error", zap.Error(wsErr))
			cancel()
		}
	}()

	var health *server.HealthServer
	healthDone := make(chan struct{})
	if cfg.Server.GRPC.Enabled {
		health, err = server.NewHealthServer(cfg.Server.GRPC.Address, logger)
		if err != nil {
			logger.Fatal("failed to start health server", zap.Error(err))
		}
		go func() {
			defer close(healthDone)
			if serveErr := health.Serve(ctx); serveErr != nil {
				logger.Error("gRPC health server error", zap.Error(serveErr))
			}
		}()
	} else {
		close(healthDone)
	}

	logger.Info("towerclash server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.Bool("health_enabled", cfg.Server.GRPC.Enabled),
	)

	// Wait for termination signal
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully...")
	if health != nil {
		health.SetNotServing()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("registry shutdown", zap.Error(err))
	}
	hub.Close()

	cancel()
	<-healthDone

	if err := store.Close(); err != nil {
		logger.Warn("failed to close result store", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("failed to flush traces", zap.Error(err))
	}

	logger.Info("towerclash server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
