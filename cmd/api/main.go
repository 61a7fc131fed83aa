package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/your-org/faceid/internal/api"
	"github.com/your-org/faceid/internal/api/handlers"
	"github.com/your-org/faceid/internal/api/ws"
	"github.com/your-org/faceid/internal/auth"
	"github.com/your-org/faceid/internal/biometric"
	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/identity"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
	"github.com/your-org/faceid/internal/queue"
	"github.com/your-org/faceid/internal/recognition"
	"github.com/your-org/faceid/internal/storage"
)

// identityBackend is what the API needs from an identity store.
type identityBackend interface {
	identity.Store
	identity.Locker
	Ping(ctx context.Context) error
}

// objectBackend is what the API needs from an object store.
type objectBackend interface {
	handlers.ObjectStore
	Ping(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting faceid API service",
		"port", cfg.Server.Port,
		"driver", cfg.Database.Driver,
		"threshold", cfg.Matching.Threshold,
		"dimension", cfg.Matching.Dimension,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openIdentityStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("open identity store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	objects, err := openObjectStore(ctx, cfg.MinIO)
	if err != nil {
		slog.Error("open object store", "error", err)
		os.Exit(1)
	}

	checks := map[string]handlers.Check{
		"database": store.Ping,
		"objects":  objects.Ping,
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	var publisher identity.Publisher
	if cfg.NATS.Enabled {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		publisher = producer
		checks["nats"] = func(context.Context) error { return producer.Ping() }

		// Relay identity events from every API replica to local WebSocket clients.
		consumer, err := queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create event consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		// Each replica needs its own consumer so that every replica sees every event.
		hostname, _ := os.Hostname()
		err = consumer.ConsumeIdentityEvents(ctx, queue.ConsumerOptions{
			Name:    "api-ws-" + consumerNameReplacer.Replace(hostname),
			Workers: 1,
			NewOnly: true,
		}, func(_ context.Context, ev models.IdentityEvent) error {
			hub.BroadcastEvent(ev)
			return nil
		})
		if err != nil {
			slog.Warn("start event relay", "error", err)
		}
	} else {
		slog.Info("nats disabled, identity events are only sent to local websocket clients")
		publisher = hubPublisher{hub: hub}
	}

	engine := biometric.NewEngine(cfg.Matching.Threshold, cfg.Matching.Dimension)

	identities := identity.NewService(identity.Options{
		Store:        store,
		Engine:       engine,
		Locker:       store,
		Hasher:       auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Publisher:    publisher,
		StoreTimeout: cfg.Matching.StoreTimeout,
	})

	router := api.NewRouter(api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		RequestTimeout: cfg.Server.RequestTimeout,
		Identities:     identities,
		Recognition:    recognition.NewService(store, engine, cfg.Matching.BatchWorkers, cfg.Matching.StoreTimeout),
		Tokens:         auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Objects:        objects,
		Hub:            hub,
		Checks:         checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

func openIdentityStore(ctx context.Context, cfg config.DatabaseConfig) (identityBackend, func(), error) {
	if cfg.Driver == config.DriverMemory {
		slog.Warn("using in-memory identity store, data is lost on restart")
		return memoryBackend{MemoryStore: storage.NewMemoryStore(), MemoryLocker: storage.NewMemoryLocker()}, func() {}, nil
	}

	db, err := storage.NewPostgresStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, db.Close, nil
}

func openObjectStore(ctx context.Context, cfg config.MinIOConfig) (objectBackend, error) {
	if !cfg.Enabled {
		slog.Warn("minio disabled, avatars are kept in memory")
		return storage.NewMemoryObjectStore(), nil
	}

	store, err := storage.NewMinIOStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to minio: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}
	return store, nil
}

// Consumer names may not contain these characters.
var consumerNameReplacer = strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-")

type memoryBackend struct {
	*storage.MemoryStore
	*storage.MemoryLocker
}

// hubPublisher delivers lifecycle events straight to the local hub.
type hubPublisher struct {
	hub *ws.Hub
}

func (p hubPublisher) PublishIdentityEvent(_ context.Context, ev models.IdentityEvent) error {
	p.hub.BroadcastEvent(ev)
	return nil
}
