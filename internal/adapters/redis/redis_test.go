package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	redisadapter "github.com/robertarktes/course-bookings/internal/adapters/redis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIdempotency_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	store := redisadapter.NewIdempotency(newTestClient(t))

	got, err := store.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected nothing stored, got %q %v", got, err)
	}
	if err := store.Set(ctx, "k", []byte("first"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "k", []byte("second"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Errorf("expected first value to be kept, got %q", got)
	}
}

func TestCache_IncrWindow(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	cache := redisadapter.NewCache(client)

	for i := int64(1); i <= 3; i++ {
		n, err := cache.IncrWindow(ctx, "rl:test", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if n != i {
			t.Fatalf("expected count %d, got %d", i, n)
		}
	}
	ttl, err := client.TTL(ctx, "rl:test").Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected the window to expire within a minute, got %v", ttl)
	}
}
