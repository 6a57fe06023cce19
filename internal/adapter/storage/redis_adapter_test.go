package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/coffee-cart/internal/core/service"
	"github.com/rl1809/coffee-cart/internal/port"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := NewRedisAdapter(client).Ping(context.Background()); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisGet_Missing(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup - ensure key doesn't exist
	client.Del(ctx, "test:cart:missing")

	_, err := adapter.Get(ctx, "test:cart:missing")
	if !errors.Is(err, port.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got: %v", err)
	}
}

func TestRedisSetGet(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	defer client.Del(ctx, "test:cart:roundtrip")

	if err := adapter.Set(ctx, "test:cart:roundtrip", []byte(`[{"id":1,"amount":2}]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adapter.Set(ctx, "test:cart:roundtrip", []byte(`[]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := adapter.Get(ctx, "test:cart:roundtrip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("expected overwrite to [], got %s", got)
	}

	// Verify no expiry was set
	ttl, _ := client.TTL(ctx, "test:cart:roundtrip").Result()
	if ttl != -1 {
		t.Errorf("expected no TTL, got %v", ttl)
	}
}

func TestRedis_CartSurvivesRestart(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := "test:cart:restart"
	client.Del(ctx, key)
	defer client.Del(ctx, key)

	catalog, err := NewEmbeddedCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	deps := service.Deps{Store: NewRedisAdapter(client), Catalog: catalog}

	first := service.NewCartStore(ctx, key, deps)
	if err := first.AddProduct(ctx, 3, 2); err != nil {
		t.Fatalf("add product: %v", err)
	}
	if err := first.AddProduct(ctx, 3, 1); err != nil {
		t.Fatalf("add product: %v", err)
	}

	second := service.NewCartStore(ctx, key, deps)
	items := second.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 line after restart, got %d", len(items))
	}
	if items[0].ID != 3 || items[0].Amount != 3 {
		t.Errorf("expected product 3 x3, got product %d x%d", items[0].ID, items[0].Amount)
	}
	if items[0].Name != "Expresso Cremoso" {
		t.Errorf("expected catalog name to be persisted, got %q", items[0].Name)
	}
}

func TestRedis_MalformedValueIgnored(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := "test:cart:malformed"
	client.Set(ctx, key, "not json", 0)
	defer client.Del(ctx, key)

	store := service.NewCartStore(ctx, key, service.Deps{Store: NewRedisAdapter(client)})
	if n := len(store.Items()); n != 0 {
		t.Errorf("expected empty cart, got %d lines", n)
	}
}
