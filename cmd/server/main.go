package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/api"
	"github.com/MehdiEmrani/wazo-chatd/internal/bus"
	"github.com/MehdiEmrani/wazo-chatd/internal/config"
	"github.com/MehdiEmrani/wazo-chatd/internal/db"
	"github.com/MehdiEmrani/wazo-chatd/internal/middleware"
	"github.com/MehdiEmrani/wazo-chatd/internal/observ"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	wazoUUID, err := uuid.Parse(cfg.WazoUUID)
	if err != nil {
		return fmt.Errorf("parse WAZO_UUID: %w", err)
	}

	// Startup has no request deadline: take as long as the backends
	// need, then shut everything down when a signal arrives.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	// Assigning to the interface types proves at compile time that the
	// stores satisfy the repository contracts.
	pool := database.Pool()
	var tenantRepo repository.TenantRepository = postgres.NewTenantStore(pool)
	var userRepo repository.UserRepository = postgres.NewUserStore(pool)
	var sessionRepo repository.SessionRepository = postgres.NewSessionStore(pool)
	var lineRepo repository.LineRepository = postgres.NewLineStore(pool)
	var endpointRepo repository.EndpointRepository = postgres.NewEndpointStore(pool)
	var roomRepo repository.RoomRepository = postgres.NewRoomStore(pool)

	publisher := bus.NewPublisher(redisClient, logger)
	consumer := bus.NewConsumer(redisClient, tenantRepo, userRepo, sessionRepo, lineRepo, endpointRepo, logger)

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Run(ctx)
	}()

	presenceHandler := api.NewPresenceHandler(userRepo, publisher, logger)
	roomHandler := api.NewRoomHandler(roomRepo, publisher, wazoUUID, logger)
	messageHandler := api.NewMessageHandler(roomRepo, publisher, wazoUUID, logger)
	statusHandler := api.NewStatusHandler(database, redisClient)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health stays public so load balancers can probe without a token.
	srv.GET("/v1/health", statusHandler.Health)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.GET("/status", statusHandler.Status)

	v1.GET("/users/presences", presenceHandler.List)
	v1.GET("/users/:user_uuid/presences", presenceHandler.Get)
	v1.PUT("/users/:user_uuid/presences", presenceHandler.Update)

	v1.GET("/users/me/rooms", roomHandler.List)
	v1.POST("/users/me/rooms", roomHandler.Create)
	v1.GET("/users/me/rooms/messages", messageHandler.ListAll)
	v1.GET("/users/me/rooms/:room_uuid/messages", messageHandler.List)
	v1.POST("/users/me/rooms/:room_uuid/messages", messageHandler.Create)

	logger.Info("starting wazo-chatd",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Run(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		<-consumerDone
		return nil
	case err := <-serverDone:
		stop()
		<-consumerDone
		return fmt.Errorf("http server: %w", err)
	}
}
