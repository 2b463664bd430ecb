package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alanis-relay/internal/config"
	"alanis-relay/internal/db"
	apihttp "alanis-relay/internal/http"
	"alanis-relay/internal/realtime"
	"alanis-relay/internal/repository"
	"alanis-relay/internal/service"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		logger.Info("migrations applied", zap.Strings("names", applied))
	}

	userRepo := repository.NewPgUserRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	hub := realtime.NewHub(logger)
	var emitter service.Emitter = hub
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("alanis-relay"))
		if err != nil {
			logger.Fatal("nats connect", zap.Error(err))
		}
		defer nc.Drain()

		bridge := realtime.NewNatsBridge(logger, hub, nc, cfg.NatsSubjectPrefix)
		if err := bridge.Start(); err != nil {
			logger.Fatal("nats bridge start", zap.Error(err))
		}
		defer bridge.Close()
		emitter = bridge
	}

	checks := map[string]apihttp.Pinger{
		"postgres": func(ctx context.Context) error { return db.Ping(ctx, pool) },
	}
	sendLimiter := service.NewSendRateLimiter(cfg.SendRateWindow, cfg.SendRateMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			sendLimiter = service.NewRedisSendRateLimiter(redisClient, cfg.SendRateWindow, cfg.SendRateMax)
		}
		cancel()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		cfg.JWTIssuer,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	directory := service.NewConnectionDirectory(logger, userRepo, emitter)
	messageSvc := service.NewMessageService(messageRepo)
	relay := service.NewRelay(logger, directory, messageSvc, emitter, sendLimiter, cfg.RelayEventTimeout)

	wsHandler := apihttp.NewWSHandler(logger, hub, relay, jwtSvc, apihttp.WSConfig{
		AllowedOrigins: cfg.WSAllowedOrigins,
		AllowAnonymous: cfg.RelayAllowAnonymous,
		Options: realtime.Options{
			MaxMessageBytes: cfg.WSMaxMessageBytes,
			SendBuffer:      cfg.WSSendBuffer,
			PongWait:        cfg.WSPongWait,
			PingPeriod:      cfg.PingPeriod(),
			WriteWait:       cfg.WSWriteWait,
		},
	})
	chatHandler := apihttp.NewChatHandler(logger, messageSvc, directory)
	healthHandler := apihttp.NewHealthHandler(logger, checks, hub.Len)
	router := apihttp.NewRouter(logger, jwtSvc, wsHandler, chatHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	// Las conexiones websocket no las cierra Shutdown. Cerrarlas aca corre el
	// disconnect de cada una mientras el pool y NATS siguen abiertos.
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("realtime hub close timed out", zap.Error(err), zap.Int("open_connections", hub.Len()))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
