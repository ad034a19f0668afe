package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(&Config{PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.DefaultJobOptions.BackoffStrategy = "linear"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestJobOptions_Backoff(t *testing.T) {
	o := JobOptions{
		BackoffStrategy:   BackoffExponential,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2,
	}
	assert.Equal(t, 100*time.Millisecond, o.backoff(1))
	assert.Equal(t, 200*time.Millisecond, o.backoff(2))
	assert.Equal(t, 400*time.Millisecond, o.backoff(3))
	assert.Equal(t, time.Second, o.backoff(10))

	o.BackoffStrategy = BackoffFixed
	assert.Equal(t, 100*time.Millisecond, o.backoff(5))
}

func TestScheduler_AddAndTrigger(t *testing.T) {
	s := newTestScheduler(t)

	var calls atomic.Int32
	_, err := s.AddFunc("tick", "@every 120m", func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	_, err = s.AddFunc("tick", "@every 1m", func() error { return nil })
	assert.ErrorIs(t, err, ErrJobExists)

	_, err = s.AddFunc("bad", "not a spec", func() error { return nil })
	assert.Error(t, err)

	require.NoError(t, s.Trigger("tick"))
	assert.Equal(t, int32(1), calls.Load())

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "tick", jobs[0].Name)
	assert.Equal(t, int64(1), jobs[0].RunCount)

	assert.ErrorIs(t, s.Trigger("missing"), ErrJobNotFound)
	require.NoError(t, s.Remove("tick"))
	assert.Empty(t, s.ListJobs())
}

func TestScheduler_Retry(t *testing.T) {
	s := newTestScheduler(t)

	var calls atomic.Int32
	_, err := s.AddFunc("flaky", "@every 1h", func() error {
		if calls.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	}, WithMaxRetries(3), WithBackoffStrategy(BackoffFixed), WithInitialBackoff(time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, s.Trigger("flaky"))
	assert.Equal(t, int32(3), calls.Load())

	boom := errors.New("boom")
	_, err = s.AddFunc("broken", "@every 1h", func() error { return boom }, WithNoRetry())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Trigger("broken"), boom)
}

func TestScheduler_PanicRecovered(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.AddFunc("panics", "@every 1h", func() error { panic("boom") }, WithNoRetry())
	require.NoError(t, err)

	assert.Error(t, s.Trigger("panics"))
}

func TestScheduler_Cron(t *testing.T) {
	s := newTestScheduler(t)

	ran := make(chan struct{}, 4)
	_, err := s.AddFunc("every-second", "* * * * * *", func() error {
		ran <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
