package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/course-bookings/internal/adapters/crdb"
	redisadapter "github.com/robertarktes/course-bookings/internal/adapters/redis"
	"github.com/robertarktes/course-bookings/internal/booking"
	"github.com/robertarktes/course-bookings/internal/config"
	httphandler "github.com/robertarktes/course-bookings/internal/http"
	"github.com/robertarktes/course-bookings/internal/idempotency"
	"github.com/robertarktes/course-bookings/internal/observability"
	"github.com/robertarktes/course-bookings/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Require("CRDB_DSN", "REDIS_ADDR", "JWT_SECRET"); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "course-bookings-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	crdbRepo := crdb.NewRepository(pool)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := crdbRepo.Migrate(migrateCtx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	cancelMigrate()

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache)

	bookings := booking.NewService(crdbRepo, logger)
	handlers := httphandler.NewHandlers(bookings, crdbRepo, idemp, logger)
	health := httphandler.NewHealth(map[string]httphandler.Probe{
		"crdb":  crdbRepo.Ping,
		"redis": redisCache.Ping,
	})

	r := httphandler.SetupRouter(handlers, httphandler.RouterConfig{
		Logger:        logger,
		JWTSecret:     cfg.JWTSecret,
		Limiter:       rl,
		RateLimitUser: cfg.RateLimitUser,
		RateLimitIP:   cfg.RateLimitIP,
		Health:        health,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
