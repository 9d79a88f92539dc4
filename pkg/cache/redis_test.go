package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client for testing.
// Tests are skipped when no local Redis is reachable; the integration
// suite runs the same checks against a testcontainers Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store := NewRedisStore(client, nil)
	if store == nil {
		t.Fatal("NewRedisStore returned nil")
	}
	if _, ok := store.codec.(JSONCodec); !ok {
		t.Errorf("default codec = %T, want JSONCodec", store.codec)
	}
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, nil)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	runRedisStoreSuite(t, client)
}

// runRedisStoreSuite exercises a RedisStore against a live Redis for every codec.
func runRedisStoreSuite(t *testing.T, client *redis.Client) {
	t.Helper()
	ctx := context.Background()

	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			store := NewRedisStore(client, codec)
			key := CacheKey{Namespace: codec.Name(), Endpoint: "/api/blog/posts/intro"}.String()

			entry := newEntry([]byte(`{"slug":"intro"}`), time.Now(), 5*time.Minute)
			if err := store.Set(ctx, key, entry); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got.Value) != string(entry.Value) {
				t.Errorf("Value mismatch: got %s, want %s", got.Value, entry.Value)
			}

			ttl, err := client.TTL(ctx, key).Result()
			if err != nil {
				t.Fatalf("TTL failed: %v", err)
			}
			if ttl <= 0 || ttl > 5*time.Minute {
				t.Errorf("redis TTL = %v, want within (0, 5m]", ttl)
			}

			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := store.Get(ctx, key); err != ErrCacheMiss {
				t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
			}
		})
	}

	t.Run("expired entry is not written", func(t *testing.T) {
		store := NewRedisStore(client, nil)
		entry := &Entry{Value: []byte("x"), ExpiresAt: time.Now().Add(-time.Hour)}

		if err := store.Set(ctx, "cc:expired", entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, err := store.Get(ctx, "cc:expired"); err != ErrCacheMiss {
			t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
		}
	})

	t.Run("corrupted entry", func(t *testing.T) {
		store := NewRedisStore(client, nil)
		if err := client.Set(ctx, "cc:corrupt", "not-json", time.Minute).Err(); err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		if _, err := store.Get(ctx, "cc:corrupt"); err == nil {
			t.Error("Get should fail for a corrupted entry")
		}
		if n, _ := client.Exists(ctx, "cc:corrupt").Result(); n != 0 {
			t.Error("corrupted entry should have been deleted")
		}
	})

	t.Run("through cache", func(t *testing.T) {
		c := New(NewRedisStore(client, MsgpackCodec{}))
		calls := 0
		fetch := func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte(`[1,2,3]`), nil
		}

		for i := 0; i < 3; i++ {
			if _, err := c.Do(ctx, "cc:through", time.Minute, fetch); err != nil {
				t.Fatalf("Do failed: %v", err)
			}
		}
		if calls != 1 {
			t.Errorf("fetch called %d times, want 1", calls)
		}
	})
}
