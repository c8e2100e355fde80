// Package retry re-runs an operation with exponential backoff while its
// failures are classified as transient.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Config defines retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 = until ctx is done).
	MaxAttempts int
	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// Jitter adds randomness to delays (0-1).
	Jitter float64
}

// StoreConfig suits opening the collection database while another process
// holds its lock.
func StoreConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Manager runs operations under a Config.
type Manager struct {
	config    Config
	retryable func(error) bool
	notify    func(attempt int, delay time.Duration, err error)
}

func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// RetryIf limits retries to errors for which fn returns true. Other errors
// are returned at once.
func (m *Manager) RetryIf(fn func(error) bool) *Manager {
	m.retryable = fn
	return m
}

// Notify registers fn to be called before each backoff sleep.
func (m *Manager) Notify(fn func(attempt int, delay time.Duration, err error)) *Manager {
	m.notify = fn
	return m
}

// Run executes fn until it succeeds, fails permanently, exhausts MaxAttempts
// or ctx is done. It returns nil on success and otherwise the last error, or
// ctx.Err() if the context ended first.
func (m *Manager) Run(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if m.retryable != nil && !m.retryable(err) {
			return err
		}
		if m.config.MaxAttempts > 0 && attempt >= m.config.MaxAttempts {
			return err
		}

		delay := m.NextDelay(attempt)
		if m.notify != nil {
			m.notify(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NextDelay returns the delay after the given failed attempt.
func (m *Manager) NextDelay(attempt int) time.Duration {
	delay := float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt-1))
	if delay > float64(m.config.MaxDelay) {
		delay = float64(m.config.MaxDelay)
	}

	if m.config.Jitter > 0 {
		jitter := delay * m.config.Jitter
		delay += (rand.Float64()*2 - 1) * jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
