package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces scraper actions so page visits don't fire back-to-back.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Jittered sleeps a uniformly random duration in [min, max] per Wait call,
// mimicking human browsing cadence. The rand source is injectable so tests
// run deterministically; a nil source falls back to the global one.
type Jittered struct {
	min time.Duration
	max time.Duration
	rng *rand.Rand
	mu  sync.Mutex
}

func NewJittered(min, max time.Duration, rng *rand.Rand) *Jittered {
	if max < min {
		max = min
	}
	return &Jittered{min: min, max: max, rng: rng}
}

func (j *Jittered) Wait(ctx context.Context) error {
	delay := j.delay()
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (j *Jittered) delay() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.max == j.min {
		return j.min
	}
	span := int64(j.max - j.min)
	if j.rng != nil {
		return j.min + time.Duration(j.rng.Int63n(span))
	}
	return j.min + time.Duration(rand.Int63n(span))
}
