// Package retry provides exponential backoff for operations against
// external systems, classified through the shared error package: invalid
// input, conflicts and missing rows fail immediately, while unavailable
// backends are retried.
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/zukunftch/zukunft.com/errors"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config tunes the backoff schedule.
type Config struct {
	MaxAttempts  int           // total attempts, minimum 1
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // cap on the backoff delay
	Multiplier   float64       // backoff growth factor
	AddJitter    bool          // randomize delays to avoid thundering herds
}

// DefaultConfig suits short store and changefeed operations.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// ConnectConfig suits startup connections that should survive a backend
// restarting beneath them.
func ConnectConfig() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Retryable reports whether an error class is worth another attempt.
// Validation, conflict and not-found errors are permanent by definition.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsInvalid(err) || errors.IsConflict(err) || errors.IsNotFound(err) {
		return false
	}
	return true
}

// Do runs fn until it succeeds, returns a permanent error, or the attempt
// budget is spent. The last error is returned on exhaustion.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2.0
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.WrapUnavailable(err, "retry", "Do", "context check")
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.AddJitter {
			wait = jitter(wait)
		}
		select {
		case <-ctx.Done():
			return errors.WrapUnavailable(ctx.Err(), "retry", "Do", "wait for backoff")
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

// jitter spreads a delay over [delay/2, delay).
func jitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	randMu.Lock()
	defer randMu.Unlock()
	half := delay / 2
	return half + time.Duration(randSource.Int63n(int64(half)+1))
}
