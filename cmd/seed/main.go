package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/course-bookings/internal/adapters/crdb"
	"github.com/robertarktes/course-bookings/internal/auth"
	"github.com/robertarktes/course-bookings/internal/config"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

var courses = []domain.Course{
	{Title: "Go Fundamentals", Description: "Types, interfaces and the standard library.", ImageURL: "courses/go-fundamentals.png", Level: "Beginner", Category: "Programming", Duration: "6 weeks", Rating: 4.6, TotalSeats: 30, AvailableSeats: 30},
	{Title: "Concurrency in Practice", Description: "Goroutines, channels and the memory model.", ImageURL: "courses/concurrency.png", Level: "Advanced", Category: "Programming", Duration: "4 weeks", Rating: 4.8, TotalSeats: 20, AvailableSeats: 20},
	{Title: "Distributed SQL", Description: "Transactions, isolation levels and contention.", ImageURL: "courses/distributed-sql.png", Level: "Intermediate", Category: "Databases", Duration: "5 weeks", Rating: 4.5, TotalSeats: 25, AvailableSeats: 25},
	{Title: "Messaging Patterns", Description: "Outboxes, topics and idempotent consumers.", ImageURL: "courses/messaging.png", Level: "Intermediate", Category: "Architecture", Duration: "3 weeks", Rating: 4.3, TotalSeats: 15, AvailableSeats: 15},
	{Title: "Observability Basics", Description: "Logs, metrics and traces for services.", ImageURL: "courses/observability.png", Level: "Beginner", Category: "Operations", Duration: "2 weeks", Rating: 4.1, TotalSeats: 40, AvailableSeats: 40},
	{Title: "API Design Workshop", Description: "Resource modelling and error contracts.", ImageURL: "courses/api-design.png", Level: "Intermediate", Category: "Architecture", Duration: "1 week", Rating: 4.4, TotalSeats: 12, AvailableSeats: 12},
}

var users = []domain.User{
	{Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
	{Name: "Alice Martin", Email: "alice@example.com", Role: domain.RoleUser},
	{Name: "Bruno Costa", Email: "bruno@example.com", Role: domain.RoleUser},
	{Name: "Chen Wei", Email: "chen@example.com", Role: domain.RoleUser},
	{Name: "Dana Okafor", Email: "dana@example.com", Role: domain.RoleUser},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Require("CRDB_DSN", "JWT_SECRET"); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	for _, c := range courses {
		// Stable ids keep reruns from duplicating the catalog.
		c.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("course:"+c.Title))
		_, err := repo.GetCourse(ctx, c.ID)
		if err == nil {
			logger.WithField("title", c.Title).Debug("course already seeded")
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			log.Fatalf("failed to look up course %q: %v", c.Title, err)
		}
		seeded, err := domain.NewCourse(c, time.Now())
		if err != nil {
			log.Fatalf("invalid seed course %q: %v", c.Title, err)
		}
		if err := repo.CreateCourse(ctx, seeded); err != nil {
			log.Fatalf("failed to seed course %q: %v", c.Title, err)
		}
		logger.WithField("course_id", seeded.ID.String()).WithField("title", seeded.Title).Info("course seeded")
	}

	for _, u := range users {
		id, err := repo.UpsertUser(ctx, u)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.Email, err)
		}
		stored, err := repo.GetUser(ctx, id)
		if err != nil {
			log.Fatalf("failed to read back user %s: %v", u.Email, err)
		}
		token, err := auth.NewToken(cfg.JWTSecret, stored.ID, stored.Role, cfg.TokenTTL)
		if err != nil {
			log.Fatalf("failed to sign token for %s: %v", u.Email, err)
		}
		fmt.Printf("%-20s %-6s %s\n", stored.Email, stored.Role, token)
	}
}
