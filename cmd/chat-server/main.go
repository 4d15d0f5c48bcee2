package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatting-demo-backend/internal/api"
	"chatting-demo-backend/internal/api/router"
	"chatting-demo-backend/internal/database"
	"chatting-demo-backend/internal/env"
	"chatting-demo-backend/internal/jwt"
	"chatting-demo-backend/internal/logger"
	"chatting-demo-backend/internal/queue"
	"chatting-demo-backend/internal/service/conversation"
	"chatting-demo-backend/internal/service/directory"
	"chatting-demo-backend/internal/service/media"
	"chatting-demo-backend/internal/store"
	"chatting-demo-backend/internal/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	apiPrefix = "/api/v1"
	wsPrefix  = "/api/ws/v1"
)

func main() {
	cfg, err := env.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("chat server stopped")
	}
}

func run(ctx context.Context, cfg env.Config, log zerolog.Logger) error {
	backend, closeBackend, err := store.OpenBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	notifier, closeNotifier, err := openNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	st := store.New(backend, notifier, log)

	blobs, files, err := openBlobs(ctx, cfg, log)
	if err != nil {
		return err
	}

	sessions, err := jwt.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	hub := websocket.NewHub(log)
	go hub.Run(hubCtx)

	queueManager := queue.NewRequestQueueManager(64, 16, log)
	defer queueManager.Shutdown()

	services := api.Services{
		Conversations: conversation.New(st, log),
		Directory:     directory.New(st, log),
		Media:         media.NewResolver(blobs, log),
		Sessions:      sessions,
		Streams:       websocket.NewHandler(hub, log),
	}

	server := api.NewAPIServer(api.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	},
		queueManager,
		services,
		log,
		router.UtilsRoutes(apiPrefix),
		router.UserRoutes(apiPrefix),
		router.ConversationRoutes(apiPrefix),
		router.MediaRoutes(apiPrefix, files),
		router.ConversationWebsocketRoutes(wsPrefix),
	)

	log.Info().
		Str("store", cfg.StoreBackend).
		Bool("redis", cfg.RedisAddr != "").
		Bool("s3", cfg.S3Bucket != "").
		Msg("chat server starting")

	err = server.Run(ctx)
	stopHub()
	<-hub.Done()
	return err
}

// openNotifier fans change signals out through Redis when configured so
// that several server processes see each other's writes.
func openNotifier(ctx context.Context, cfg env.Config, log zerolog.Logger) (store.Notifier, func(), error) {
	if cfg.RedisAddr == "" {
		return store.NewLocalNotifier(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return store.NewRedisNotifier(client, log), func() { client.Close() }, nil
}

// openBlobs returns S3 storage when a bucket is configured and in-process
// blobs served by this server otherwise.
func openBlobs(ctx context.Context, cfg env.Config, log zerolog.Logger) (media.Blobs, *media.MemoryBlobs, error) {
	if cfg.S3Bucket == "" {
		log.Warn().Msg("no S3 bucket configured, keeping media in memory")
		files := media.NewMemoryBlobs(router.MediaFilesURL(cfg.PublicURL, apiPrefix))
		return files, files, nil
	}

	awsCfg, err := database.LoadAWSConfig(ctx, store.DynamoConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return media.NewS3Blobs(awsCfg, media.S3Config{
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicURL,
		PresignTTL:    cfg.S3PresignTTL,
		Endpoint:      cfg.S3Endpoint,
	}), nil, nil
}
