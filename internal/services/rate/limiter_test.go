package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
)

func TestLimiterBlocksOnBurstWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 100, 2)

	ctx := context.Background()
	telegramID := int64(42)

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, telegramID)
		if err != nil {
			t.Fatalf("allow request #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, telegramID)
	if err != nil {
		t.Fatalf("allow request #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third request in burst window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, telegramID)
	if err != nil {
		t.Fatalf("allow request after burst window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("expected allow after window reset: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 3, 0)

	ctx := context.Background()
	telegramID := int64(7)

	for i := 0; i < 3; i++ {
		if _, allowed, err := limiter.Allow(ctx, telegramID); err != nil || !allowed {
			t.Fatalf("allow request #%d: allowed=%v err=%v", i+1, allowed, err)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, telegramID)
	if err != nil {
		t.Fatalf("allow request #4: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on fourth request in minute window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
