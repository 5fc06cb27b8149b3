package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethduel/duel-server-go/internal/config"
	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/cards"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/ethduel/duel-server-go/internal/repository"
	"github.com/ethduel/duel-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
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

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Card catalog
	catalog := cards.DefaultCatalog()
	if cfg.Game.CatalogPath != "" {
		catalog, err = cards.LoadCatalog(cfg.Game.CatalogPath)
		if err != nil {
			logger.Fatal("failed to load card catalog", zap.String("path", cfg.Game.CatalogPath), zap.Error(err))
		}
	}
	logger.Info("card catalog loaded", zap.Strings("decks", catalog.DeckIDs()))

	// Game engine
	var engineOpts []game.Option
	if cfg.Game.ReplayDir != "" {
		if err := os.MkdirAll(cfg.Game.ReplayDir, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.String("dir", cfg.Game.ReplayDir), zap.Error(err))
		}
		engineOpts = append(engineOpts, game.WithReplayDir(cfg.Game.ReplayDir))
	}
	engine, err := game.NewEngine(logger, cfg.Game.Rules, catalog, engineOpts...)
	if err != nil {
		logger.Fatal("failed to create game engine", zap.Error(err))
	}
	logger.Info("game engine initialized",
		zap.Int64("win_condition_eth", cfg.Game.Rules.WinConditionETH),
		zap.String("replay_dir", cfg.Game.ReplayDir),
	)

	// Notifications
	bus := notify.NewBus(logger, cfg.Game.NotifyBuffer)
	defer bus.Close()
	publishers := notify.Fanout{bus}

	if cfg.NATS.Enabled {
		nc, err := notify.ConnectNATS(cfg.NATS.URL, cfg.NATS.Token, logger)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.String("url", cfg.NATS.URL), zap.Error(err))
		}
		defer nc.Drain()
		publishers = append(publishers, notify.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix))
		logger.Info("NATS publisher initialized", zap.String("subject_prefix", cfg.NATS.SubjectPrefix))
	}

	gatewayOpts := []gateway.Option{gateway.WithSubmitTimeout(cfg.Server.SubmitTimeout)}

	// Initialize database
	if cfg.Database.Enabled {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		gatewayOpts = append(gatewayOpts, gateway.WithRecorder(repository.NewGameRecordRepository(db)))
	} else {
		logger.Info("database disabled; finished games are not persisted")
	}

	gw := gateway.New(logger, engine, publishers, gatewayOpts...)

	// gRPC
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
		)),
		grpc.StreamInterceptor(server.StreamRecoveryInterceptor(logger)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             20 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	server.RegisterDuelServiceServer(grpcServer, server.NewDuelServer(gw, bus, version, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	if cfg.Game.WaitingTTL > 0 {
		go expireWaitingGames(ctx, gw, cfg.Game.WaitingTTL, logger)
	}

	// HTTP and websocket
	hub := server.NewHub(logger, gw, bus)
	go func() {
		if hubErr := hub.Run(ctx); hubErr != nil {
			logger.Error("websocket hub stopped", zap.Error(hubErr))
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.HTTP.Address,
		Handler:      server.NewHTTPServer(ctx, cfg.Server.HTTP, gw, hub, logger).Routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if httpErr := httpServer.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(httpErr))
		}
	}()

	logger.Info("duel server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("http_address", cfg.Server.HTTP.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	grpcServer.GracefulStop()

	logger.Info("duel server stopped", zap.Int("active_games", engine.ActiveGameCount()))
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

// expireWaitingGames frees the seats of games nobody joined within ttl.
func expireWaitingGames(ctx context.Context, gw *gateway.Gateway, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := gw.ExpireWaitingGames(ttl); len(expired) > 0 {
				logger.Info("expired waiting games", zap.Int("count", len(expired)))
			}
		}
	}
}
