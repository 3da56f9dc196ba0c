package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guild-chat/auth"
	"guild-chat/contract"
	"guild-chat/infrastructure/grpc/health"
	"guild-chat/infrastructure/rest"
	"guild-chat/infrastructure/ws"
	"guild-chat/internal"
	"guild-chat/moderation"
	"guild-chat/observability"
	"guild-chat/publisher"
	"guild-chat/repositories"
	"guild-chat/runtime"
	"guild-chat/runtime/workers"
	"guild-chat/search"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups always run before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Metrics & connection registry
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(promRegistry)
	registry := runtime.NewRegistry(logger, metrics)

	// 3. Message store
	var store contract.MessageStore
	var debugServer *internal.DebugServer
	switch config.StoreDriver {
	case storePostgres:
		db, err := repositories.OpenPostgres(ctx, config.PostgresDSN, repositories.DefaultPostgresConfig())
		if err != nil {
			return exitRuntime, fmt.Errorf("postgres opening failed: %w", err)
		}
		defer closePostgres(db, logger)

		repository := repositories.NewPostgresMessageRepository(db, logger)
		if err := repository.EnsureSchema(ctx); err != nil {
			return exitRuntime, fmt.Errorf("schema creation failed: %w", err)
		}
		store = repository
	default:
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		store = repositories.NewMessageRepository(db, logger)

		if logger.Enabled(ctx, slog.LevelDebug) {
			endpoint := "/inspect"
			logger.Info("Debug Badger inspector available",
				"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
			debugServer = internal.NewDebugServer(db, config.DebugPort, endpoint, MessageMapper, func() map[string]any {
				return map[string]any{"connections": registry.Len(), "authenticated": registry.Authenticated()}
			}, logger)
			debugServer.Start()
		}
	}

	// 4. Moderation
	var relayOpts []runtime.RelayOption
	relayOpts = append(relayOpts, runtime.WithMaxContentLength(config.MaxContentLength), runtime.WithMetrics(metrics))
	if config.CensoredDir != "" {
		data, err := moderation.NewCensoredLoader(os.DirFS(config.CensoredDir)).LoadAll(".")
		if err != nil {
			return exitConfig, fmt.Errorf("censored words loading failed: %w", err)
		}
		moderator, err := moderation.NewModerator(data.Words, charReplacement, logger)
		if err != nil {
			return exitConfig, err
		}
		logger.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
		relayOpts = append(relayOpts, runtime.WithModerator(moderator))
	}

	// 5. Supervision & observers
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	var queues []workers.NamedChannel
	var observers []contract.MessageObserver

	var searcher contract.Searcher
	if config.BlugeFilepath != "" {
		blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
		}
		defer func() {
			logger.Info("Closing Bluge...")
			_ = blugeWriter.Close()
		}()
		index := search.NewIndex(blugeWriter, logger)
		indexWorker := workers.NewIndexWorker(logger, index, config.ObserverBufferSize, metrics)
		sup.Add(indexWorker)
		observers = append(observers, indexWorker)
		queues = append(queues, indexWorker.Channel())
		searcher = index
	}

	if config.KafkaBrokers != "" {
		kafka := publisher.NewPublisher(publisher.NewKafkaWriter(config.KafkaBrokers, config.KafkaTopic), logger)
		defer func() {
			logger.Info("Closing Kafka writer...")
			_ = kafka.Close()
		}()
		publishWorker := workers.NewPublishWorker(logger, kafka, config.ObserverBufferSize, config.KafkaTimeout, metrics)
		sup.Add(publishWorker)
		observers = append(observers, publishWorker)
		queues = append(queues, publishWorker.Channel())
	}

	sup.Add(
		workers.NewChannelCapacityWorker(logger, queues, metrics, config.MetricInterval),
		workers.NewHeartbeatWorker(logger, metrics, registry, config.MetricInterval),
	)
	if len(observers) > 0 {
		relayOpts = append(relayOpts, runtime.WithObservers(observers...))
	}

	// 6. Chat core
	var tokens *auth.Tokens
	if config.JWTSecret != "" {
		tokens = auth.NewTokens(config.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET is not set, identities are trusted as sent")
	}
	relay := runtime.NewRelay(logger, store, registry, relayOpts...)
	dispatcher := runtime.NewDispatcher(logger, auth.NewAuthenticator(tokens, logger), relay, registry, metrics)

	wsConfig := ws.DefaultConfig()
	wsConfig.BufferSize = config.ConnectionBufferSize
	socket := ws.NewHandler(logger, registry, dispatcher, wsConfig)

	router := rest.NewRouter(rest.Dependencies{
		Log:          logger,
		Store:        store,
		Searcher:     searcher,
		Socket:       socket,
		Metrics:      promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		Connections:  registry.Len,
		HistoryLimit: config.HistoryLimit,
	})

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		logger.Info("Starting workers...")
		sup.Run(ctx)
	}()

	// 8. HTTP server (REST + websocket)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. gRPC health server
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	grpcServer, healthServer := health.NewServer(logger)
	go func() {
		logger.Info("Starting gRPC health server", "address", grpcAddress)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	exitCode := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		exitCode = exitRuntime
	}

	// 11. Graceful Shutdown
	logger.Info("Shutting down gracefully...")
	health.Drain(healthServer)
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if debugServer != nil {
		_ = debugServer.Stop(shutdownCtx)
	}
	registry.Shutdown()

	stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitCode, runErr
}

func buildBadgerOpts(config Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

func closePostgres(db *sql.DB, logger *slog.Logger) {
	logger.Info("Closing Postgres pool...")
	_ = db.Close()
}

// MessageMapper renders a stored chat message in the debug inspector.
func MessageMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	msg, err := repositories.DecodeMessage(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = "CHAT"
	if msg.ClanID != nil {
		row.Type = "CLAN"
	}
	if msg.RecipientID != nil {
		row.Type = "DIRECT"
	}
	row.Detail = fmt.Sprintf("%s: %s", msg.Username, msg.Content)
	return row
}
