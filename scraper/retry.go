package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type retryManager struct {
	backoff time.Duration
	metrics *Metrics
	sleep   func(ctx context.Context, d time.Duration) error

	mu           sync.Mutex
	totalRetries int
}

func newRetryManager(backoff time.Duration, metrics *Metrics) *retryManager {
	return &retryManager{
		backoff: backoff,
		metrics: metrics,
		sleep:   sleepContext,
	}
}

// Do calls attempt until it reports success, waiting a fixed backoff between
// tries. attempts <= 0 means no limit. ErrRetriesExhausted is returned once a
// bounded budget runs out; errors from attempt abort immediately.
func (rm *retryManager) Do(ctx context.Context, endpoint string, attempts int, attempt func() (bool, error)) error {
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := attempt()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if attempts > 0 && n >= attempts {
			return ErrRetriesExhausted
		}

		rm.mu.Lock()
		rm.totalRetries++
		rm.mu.Unlock()
		rm.metrics.IncRetries(endpoint)
		slog.Debug("retrying request",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", n),
			slog.Duration("backoff", rm.backoff),
		)

		if err := rm.sleep(ctx, rm.backoff); err != nil {
			return err
		}
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
