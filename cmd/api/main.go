package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-analytics/internal/config"
	"user-analytics/internal/db"
	apihttp "user-analytics/internal/http"
	"user-analytics/internal/repository"
	"user-analytics/internal/service"
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

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	accountRepo := repository.NewPgAccountRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)

	if err := db.Seed(ctx, logger, accountRepo, userRepo); err != nil {
		logger.Fatal("db seed", zap.Error(err))
	}

	var stateStore service.StateStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			stateStore = service.NewRedisStateStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	accountSvc := service.NewAccountService(logger, accountRepo)
	oauthSvc := service.NewOAuthService(
		logger,
		accountRepo,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.PublicBaseURL+"/callback/google",
		stateStore,
	)
	analyticsSvc := service.NewAnalyticsService(userRepo)

	authHandler := apihttp.NewAuthHandler(logger, accountSvc, oauthSvc, jwtSvc)
	userHandler := apihttp.NewUserHandler(logger, userRepo)
	analyticsHandler := apihttp.NewAnalyticsHandler(logger, analyticsSvc)
	router := apihttp.NewRouter(logger, cfg.AllowedOrigins, jwtSvc, accountRepo, authHandler, userHandler, analyticsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
