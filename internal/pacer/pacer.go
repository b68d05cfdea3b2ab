package pacer

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultMin = 2 * time.Second
	DefaultMax = 5 * time.Second
)

// Pacer spaces out outbound requests by a random interval in [min, max].
// A zero Pacer never waits.
type Pacer struct {
	min  time.Duration
	max  time.Duration
	rand func(n int64) int64
}

func New(minDelay, maxDelay time.Duration) *Pacer {
	minDelay = max(minDelay, 0)
	maxDelay = max(maxDelay, minDelay)

	return &Pacer{
		min:  minDelay,
		max:  maxDelay,
		rand: rand.Int64N,
	}
}

func (p *Pacer) Delay() time.Duration {
	if p == nil || p.max <= 0 {
		return 0
	}

	spread := int64(p.max - p.min)
	if spread <= 0 || p.rand == nil {
		return p.min
	}

	return p.min + time.Duration(p.rand(spread+1))
}

// Wait blocks for one pacing interval or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	delay := p.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
