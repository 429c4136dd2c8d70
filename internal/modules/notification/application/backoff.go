package application

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay before the given retry attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// LinearBackoff waits Base*attempt, plus up to Jitter extra.
type LinearBackoff struct {
	Base   time.Duration
	Jitter time.Duration
}

func (b LinearBackoff) Delay(attempt int) time.Duration {
	d := b.Base * time.Duration(attempt)
	if b.Jitter > 0 {
		d += rand.N(b.Jitter)
	}
	return d
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
