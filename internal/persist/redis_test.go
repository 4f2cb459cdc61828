package persist_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/tabletop/internal/persist"
)

func TestRedis(t *testing.T) {
	rawURL := os.Getenv("REDIS_URL")
	if rawURL == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		t.Fatalf("parsing redis url: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	key := fmt.Sprintf("playground-test-%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	r := persist.NewRedis(client, key)
	if err := r.Check(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	exerciseAdapter(t, r)
}
