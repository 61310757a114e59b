package rate

import (
	"context"
	"fmt"
	"time"
)

const (
	minuteWindow = time.Minute
	burstWindow  = 10 * time.Second
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, bucket string, telegramID int64, window time.Duration) (int64, time.Duration, error)
}

// Limiter enforces two fixed windows per player: a sustained per-minute
// budget and a short burst budget.
type Limiter struct {
	store     WindowStore
	perMinute int
	perBurst  int
}

func NewLimiter(store WindowStore, perMinute, perBurst int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	if perBurst < 0 {
		perBurst = 0
	}

	return &Limiter{
		store:     store,
		perMinute: perMinute,
		perBurst:  perBurst,
	}
}

// Allow counts the request against both windows and returns the number of
// seconds to wait when either budget is exhausted.
func (l *Limiter) Allow(ctx context.Context, telegramID int64) (int64, bool, error) {
	if telegramID <= 0 {
		return 0, false, fmt.Errorf("invalid telegram id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if l.perMinute > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, "minute", telegramID, minuteWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perMinute) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.perBurst > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, "burst", telegramID, burstWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perBurst) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}

	return 0, true, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec < 1 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
