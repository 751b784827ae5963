package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-hub/auth"
	"restaurant-hub/bridge"
	"restaurant-hub/domain/event"
	grpc2 "restaurant-hub/grpc"
	"restaurant-hub/moderation"
	"restaurant-hub/observability"
	"restaurant-hub/repositories"
	"restaurant-hub/runtime"
	"restaurant-hub/runtime/workers"
	"restaurant-hub/server"
	"restaurant-hub/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives or one of
// the servers fails. Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	censorChar, err := config.CharacterRune()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if config.NodeID == "" {
		config.NodeID = uuid.NewString()
	}

	// 2. Database (BadgerDB)
	db, err := openDB(config.BadgerFilepath)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Node bridge
	nodeBridge, err := bridge.New(bridge.Config{
		Type:         bridge.Type(config.BridgeType),
		NodeID:       config.NodeID,
		RedisAddr:    config.RedisAddr,
		RedisChannel: config.RedisChannel,
		KafkaBrokers: config.KafkaBrokers,
		KafkaTopic:   config.KafkaTopic,
		KafkaGroup:   config.KafkaGroup,
	}, log)
	if err != nil {
		return fmt.Errorf("bridge setup failed: %w", err)
	}
	var outbound chan event.DomainEvent
	if nodeBridge != nil {
		outbound = make(chan event.DomainEvent, config.BridgeBufferSize)
		defer func() { _ = nodeBridge.Close() }()
	}

	// 4. Hub core
	chats := repositories.NewChatRepository(db, log, config.LimitMessages)
	orders := repositories.NewOrderRepository(db)
	reservations := repositories.NewReservationRepository(db)
	notifications := repositories.NewNotificationRepository(db)

	registry := runtime.NewRegistry(log)
	router := runtime.NewRouter(log, registry, repositories.NewOwnership(chats, orders, reservations))
	dispatcher := runtime.NewDispatcher(log, registry, outbound)

	moderator, err := moderation.FromList(config.CensoredWords, censorChar, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	chatService := services.NewChatService(log, chats, router, dispatcher, moderator)
	orderService := services.NewOrderService(log, orders, dispatcher)
	reservationService := services.NewReservationService(log, reservations, dispatcher)
	notificationService := services.NewNotificationService(log, notifications, dispatcher)
	ingestService := services.NewIngestService(log, chats, orders, reservations, notifications, dispatcher)
	handler := services.NewCommandHandler(log, router, registry,
		services.NewCommandLimiter(config.CommandRate, config.CommandBurst),
		chatService, orderService, reservationService, notificationService)

	// 5. Auth
	if config.ServiceTokenHash == "" {
		log.Warn("SERVICE_TOKEN_HASH is empty, ingest is disabled")
	}
	verifier := auth.NewServiceTokenVerifier(config.ServiceTokenHash)
	identities := auth.NewIdentityResolver(auth.NewTokenService(config.JWTSecret))

	// 6. Supervised workers
	sampler, err := observability.NewProcessSampler()
	if err != nil {
		return fmt.Errorf("process sampler failed: %w", err)
	}
	monitor := observability.NewMonitor()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewIdleReaper(log, registry, config.IdleTimeout, config.ReapInterval),
		workers.NewStatsReporter(log, registry, sampler, monitor, config.StatsInterval),
	)
	if nodeBridge != nil {
		sup.Add(
			workers.NewBridgeForwarder(log, nodeBridge, config.NodeID, outbound),
			workers.NewBridgeListener(log, nodeBridge, config.NodeID, dispatcher),
			workers.NewChannelCapacityWorker(log, []workers.NamedChannel{
				{Name: "bridge_outbound", Channel: outbound},
			}, config.StatsInterval),
		)
	}

	// 7. Servers
	hub := server.NewServer(log, server.Config{
		AllowedOrigins: config.Origins(),
		SendBufferSize: config.SendBufferSize,
	}, registry, router, handler, server.API{
		Ingest:        ingestService,
		Chat:          chatService,
		Orders:        orderService,
		Reservations:  reservationService,
		Notifications: notificationService,
	}, identities, verifier, monitor)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           hub.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	grpcServer := grpc2.NewServer(log, verifier, ingestService)

	// 8. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sup.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Info("Starting HTTP server", "address", httpServer.Addr, "node_id", config.NodeID)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Starting gRPC server", "address", grpcAddress)
		if err := grpcServer.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})

	// 9. Wait for Stop or Error, then clean up
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		closed := registry.DisconnectAll()
		grpcServer.GracefulStop()
		log.Info("Connections closed", "count", closed)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}

func openDB(path string) (*badger.DB, error) {
	if path == "" {
		return repositories.OpenInMemory()
	}
	return badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
}
