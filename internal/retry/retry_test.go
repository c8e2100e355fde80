package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

var errBusy = errors.New("database is locked")

func TestRunSucceedsAfterTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	var notified []int
	err := NewManager(fastConfig(5)).
		Notify(func(attempt int, _ time.Duration, err error) {
			assert.ErrorIs(t, err, errBusy)
			notified = append(notified, attempt)
		}).
		Run(context.Background(), func(context.Context) error {
			if attempts.Add(1) < 3 {
				return errBusy
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []int{1, 2}, notified)
}

func TestRunStopsAtMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	start := time.Now()
	err := NewManager(fastConfig(3)).Run(context.Background(), func(context.Context) error {
		attempts.Add(1)
		return errBusy
	})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, int32(3), attempts.Load())
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond, "5ms + 10ms of backoff")
}

func TestRunReturnsPermanentErrorsAtOnce(t *testing.T) {
	permanent := errors.New("no such directory")
	var attempts atomic.Int32
	err := NewManager(fastConfig(5)).
		RetryIf(func(err error) bool { return errors.Is(err, errBusy) }).
		Run(context.Background(), func(context.Context) error {
			attempts.Add(1)
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRunHonorsContext(t *testing.T) {
	cfg := fastConfig(0)
	cfg.InitialDelay = 100 * time.Millisecond
	cfg.MaxDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var attempts atomic.Int32
	start := time.Now()
	err := NewManager(cfg).Run(ctx, func(context.Context) error {
		attempts.Add(1)
		return errBusy
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	err = NewManager(cfg).Run(ctx, func(context.Context) error {
		t.Fatal("must not run with a finished context")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNextDelay(t *testing.T) {
	m := NewManager(Config{InitialDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2})
	var got []time.Duration
	for attempt := 1; attempt <= 5; attempt++ {
		got = append(got, m.NextDelay(attempt))
	}
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		100 * time.Millisecond,
	}, got)
}

func TestNextDelayJitter(t *testing.T) {
	m := NewManager(Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: 0.5})

	seen := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		d := m.NextDelay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1, "jitter varies the delay")
}

func TestStoreConfig(t *testing.T) {
	cfg := StoreConfig(4)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.LessOrEqual(t, cfg.InitialDelay, cfg.MaxDelay)
}
