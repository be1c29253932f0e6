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

	"github.com/nikhil/chatgenius/internal/config"
	"github.com/nikhil/chatgenius/internal/database"
	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/metrics"
	"github.com/nikhil/chatgenius/internal/realtime"
	"github.com/nikhil/chatgenius/internal/routes"
	services "github.com/nikhil/chatgenius/internal/service/auth"
	"github.com/nikhil/chatgenius/internal/service/channels"
	"github.com/nikhil/chatgenius/internal/service/files"
	"github.com/nikhil/chatgenius/internal/service/messages"
	"github.com/nikhil/chatgenius/internal/service/threads"
	"github.com/nikhil/chatgenius/internal/service/users"
	"github.com/nikhil/chatgenius/internal/storage"
	"github.com/nikhil/chatgenius/internal/store"
)

// chatStore is everything the services need from persistence.
type chatStore interface {
	channels.Store
	messages.Store
	threads.Store
	files.Store
	services.Store
	users.Store
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	log := logger.NewLogger("chatgenius")
	defer log.Sync()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics.Init()

	channelService := channels.NewChannelService(db, nil, log.Named("channel-service"))
	hub := realtime.NewHub(channelService, log.Named("hub"))

	var publisher realtime.Publisher = hub
	if cfg.RedisURL != "" {
		client, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		relay := realtime.NewRedisRelay(client, cfg.RedisChannel, hub, log.Named("relay"))
		pubsub, err := relay.Subscribe(ctx)
		if err != nil {
			return err
		}
		go relay.Run(ctx, pubsub)
		publisher = relay
		log.Info("Relaying events through Redis", "channel", cfg.RedisChannel)
	}
	channelService.Publisher = publisher

	var blobs storage.BlobStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint, cfg.S3PublicRead)
		if err != nil {
			return err
		}
		blobs = s3Store
	} else {
		log.Warn("S3_BUCKET is not set, file uploads are disabled")
	}

	authService := services.NewAuthService(db, cfg.JWTSecret, log.Named("auth-service"))
	profiles := users.NewProfileService(db, publisher, log.Named("profile-service"))
	hub.OnPresence(profiles.Connected, profiles.Disconnected)
	if err := profiles.SeedAssistant(ctx); err != nil {
		return fmt.Errorf("seed assistant: %w", err)
	}

	set := &handlers.Set{
		Auth:      handlers.NewAuthHandler(authService, log),
		Users:     handlers.NewUserHandler(profiles, log),
		Channels:  handlers.NewChannelHandler(channelService, log),
		Messages:  handlers.NewMessageHandler(messages.NewMessageService(db, publisher, log.Named("message-service")), log),
		Threads:   handlers.NewThreadHandler(threads.NewThreadService(db, publisher, log.Named("thread-service")), log),
		Files:     handlers.NewFileHandler(files.NewFileService(db, blobs, publisher, log.Named("file-service")), cfg.UploadMaxBytes, log),
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.CORSOrigin, log.Named("websocket")),
		Health:    handlers.NewHealthHandler(db, log),
	}

	go hub.Run(ctx)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           routes.Handler(routes.Deps{Handlers: set, Tokens: authService, Log: log.Named("http")}, cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server is running", "addr", cfg.Addr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (chatStore, func(), error) {
	if cfg.UsesMemoryStore() {
		log.Warn("Using the in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("Database ready", "host", cfg.Database.Host, "name", cfg.Database.Name)
	return store.NewMySQLStore(db), func() { db.Close() }, nil
}
