package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
	redisrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}

func TestBalanceRepoRoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	repo := redisrepo.NewBalanceRepo(client)
	ctx := context.Background()

	if _, found, err := repo.Get(ctx, 42); err != nil || found {
		t.Fatalf("expected cache miss, got found=%v err=%v", found, err)
	}

	if err := repo.Set(ctx, 42, 123.45); err != nil {
		t.Fatalf("set balance: %v", err)
	}

	balance, found, err := repo.Get(ctx, 42)
	if err != nil || !found {
		t.Fatalf("expected cache hit, got found=%v err=%v", found, err)
	}
	if balance != 123.45 {
		t.Fatalf("expected balance 123.45, got %v", balance)
	}

	if err := repo.Invalidate(ctx, 42); err != nil {
		t.Fatalf("invalidate balance: %v", err)
	}
	if _, found, _ := repo.Get(ctx, 42); found {
		t.Fatal("expected cache miss after invalidate")
	}
}

func TestBalanceRepoDropsPoisonedEntry(t *testing.T) {
	mr, client := newTestClient(t)
	repo := redisrepo.NewBalanceRepo(client)

	mr.HSet("user_balances", "42", "not-a-number")

	_, found, err := repo.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("get poisoned balance: %v", err)
	}
	if found {
		t.Fatal("poisoned entry should read as a miss")
	}
}

func TestLockRepoOwnership(t *testing.T) {
	_, client := newTestClient(t)
	repo := redisrepo.NewLockRepo(client)
	ctx := context.Background()

	token, err := repo.Acquire(ctx, "promo:42", time.Minute)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}

	if _, err := repo.Acquire(ctx, "promo:42", time.Minute); !errors.Is(err, redisrepo.ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}

	// Releasing with the wrong token must leave the lock held.
	if err := repo.Release(ctx, "promo:42", "wrong-token"); err != nil {
		t.Fatalf("release with wrong token: %v", err)
	}
	if _, err := repo.Acquire(ctx, "promo:42", time.Minute); !errors.Is(err, redisrepo.ErrLockNotAcquired) {
		t.Fatalf("lock should still be held, got %v", err)
	}

	if err := repo.Release(ctx, "promo:42", token); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if _, err := repo.Acquire(ctx, "promo:42", time.Minute); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}

func TestInvoiceRepoLifecycle(t *testing.T) {
	mr, client := newTestClient(t)
	repo := redisrepo.NewInvoiceRepo(client)
	ctx := context.Background()

	record := redisrepo.InvoiceRecord{
		Payload:    "deposit_42_abc",
		TelegramID: 42,
		Amount:     50,
		Status:     enums.InvoiceStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.Put(ctx, record); err != nil {
		t.Fatalf("put invoice: %v", err)
	}

	loaded, err := repo.Get(ctx, "deposit_42_abc")
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if loaded.TelegramID != 42 || loaded.Status != enums.InvoiceStatusPending {
		t.Fatalf("unexpected invoice record: %+v", loaded)
	}

	paid, err := repo.MarkStatus(ctx, "deposit_42_abc", enums.InvoiceStatusPaid)
	if err != nil {
		t.Fatalf("mark invoice paid: %v", err)
	}
	if paid.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected paid status, got %s", paid.Status)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := repo.Get(ctx, "deposit_42_abc"); !errors.Is(err, redisrepo.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound after ttl, got %v", err)
	}
}

func TestRateRepoWindow(t *testing.T) {
	mr, client := newTestClient(t)
	repo := redisrepo.NewRateRepo(client)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, ttl, err := repo.IncrementWindow(ctx, "minute", 42, time.Minute)
		if err != nil {
			t.Fatalf("increment window: %v", err)
		}
		if count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, count)
		}
		if ttl <= 0 {
			t.Fatalf("expected positive ttl, got %v", ttl)
		}
	}

	mr.FastForward(2 * time.Minute)
	count, _, err := repo.IncrementWindow(ctx, "minute", 42, time.Minute)
	if err != nil {
		t.Fatalf("increment after window reset: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window count 1, got %d", count)
	}
}
