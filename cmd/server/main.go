package main

import (
	"context"
	"ithakabot/internal/app"
	"ithakabot/internal/cache"
	"ithakabot/internal/config"
	"ithakabot/internal/llm"
	"ithakabot/internal/logging"
	"ithakabot/internal/metrics"
	"ithakabot/internal/notify"
	"ithakabot/internal/repository"
	"ithakabot/internal/service"
	"ithakabot/internal/transport/rest"
	"ithakabot/internal/transport/ws"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const completionStream = "INTAKE"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	logger.Info("AI config",
		zap.String("provider", cfg.AI.Provider),
		zap.String("extraction", cfg.AI.Models.Extraction),
		zap.String("evaluation", cfg.AI.Models.Evaluation),
		zap.String("suggestions", cfg.AI.Models.Suggestions),
		zap.Bool("apiKey", cfg.AI.IsEnabled()),
	)
	if !cfg.AI.IsEnabled() {
		logger.Warn("AI API key not set, answers are accepted as typed and graded by length")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	notifier, closeNotifier := newNotifier(ctx, cfg.NATS, logger)
	defer closeNotifier()

	generator, err := llm.New(ctx, cfg.AI, m)
	if err != nil {
		logger.Fatal("Failed to create text generator", zap.Error(err))
	}

	// Initialize repositories and caches
	sessions := cache.NewCachedSessionStore(
		repository.NewSessionRepo(db),
		cache.NewSessionCache(rdb, cfg.Redis.SessionTTL),
		logger.Named("session_cache"),
	)

	a := app.New(app.Deps{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Sessions:     sessions,
		Applications: repository.NewApplicationRepo(db),
		Locker:       cache.NewRedisLocker(rdb, cfg.Redis.LockTTL),
		Notifier:     notifier,
		Generator:    generator,
	})

	// Initialize WebSocket hub
	wsHub := ws.NewHub(logger.Named("hub"))
	defer wsHub.Stop()
	a.Chat.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:        a.Auth,
		ChatService:        a.Chat,
		ApplicationService: a.Applications,
		WSHub:              wsHub,
		Metrics:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:             logger,
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("admin", cfg.Auth.Username))
		logger.Info("Endpoints",
			zap.Strings("routes", []string{
				"POST /v1/auth/login",
				"POST /v1/conversations/{conversationId}/messages",
				"GET  /v1/conversations/{conversationId}/session",
				"GET  /v1/applications",
				"GET  /v1/applications/{id}",
				"WS   /v1/ws/conversations/{conversationId}",
				"WS   /v1/ws/admin",
			}),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newNotifier publishes completions to JetStream when NATS is configured and
// logs them otherwise.
func newNotifier(ctx context.Context, cfg config.NATSConfig, logger *zap.Logger) (service.Notifier, func()) {
	if cfg.URL == "" {
		logger.Warn("NATS_URL not set, completion notifications are only logged")
		return notify.NewLogNotifier(logger.Named("notify")), func() {}
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	js, err := jetstream.New(conn)
	if err != nil {
		logger.Fatal("Failed to create JetStream context", zap.Error(err))
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     completionStream,
		Subjects: []string{cfg.Subject},
	}); err != nil {
		logger.Fatal("Failed to create stream", zap.String("stream", completionStream), zap.Error(err))
	}
	logger.Info("Connected to NATS", zap.String("subject", cfg.Subject))

	return notify.NewNATSNotifier(js, cfg.Subject), func() {
		conn.Drain()
	}
}
