package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCleaner struct {
	mu      sync.Mutex
	days    int
	calls   int
	ages    []time.Duration
	removed int
	err     error
	block   chan struct{}
}

func (f *fakeCleaner) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	f.mu.Lock()
	f.calls++
	f.ages = append(f.ages, age)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.removed, f.err
}

func (f *fakeCleaner) RetentionDays() int {
	return f.days
}

func (f *fakeCleaner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRetentionConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultRetentionConfig().Validate())

	err := RetentionConfig{Interval: 0, Timeout: time.Second}.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = RetentionConfig{Interval: time.Second}.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewRetentionWorker_RequiresArchive(t *testing.T) {
	_, err := NewRetentionWorker(DefaultRetentionConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRetentionWorker_RunOnce(t *testing.T) {
	cleaner := &fakeCleaner{days: 30, removed: 4}
	w, err := NewRetentionWorker(DefaultRetentionConfig(), cleaner, zap.NewNop())
	require.NoError(t, err)

	removed, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
	assert.Equal(t, []time.Duration{30 * 24 * time.Hour}, cleaner.ages)

	last, n := w.LastRun()
	assert.False(t, last.IsZero())
	assert.Equal(t, 4, n)
}

func TestRetentionWorker_RunOnce_Disabled(t *testing.T) {
	cleaner := &fakeCleaner{days: 0}
	w, err := NewRetentionWorker(DefaultRetentionConfig(), cleaner, nil)
	require.NoError(t, err)

	removed, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, cleaner.callCount())
}

func TestRetentionWorker_RunOnce_Error(t *testing.T) {
	cleaner := &fakeCleaner{days: 7, err: errors.New("disk gone")}
	w, err := NewRetentionWorker(DefaultRetentionConfig(), cleaner, nil)
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")

	last, _ := w.LastRun()
	assert.True(t, last.IsZero())
}

func TestRetentionWorker_RunOnce_Overlapping(t *testing.T) {
	cleaner := &fakeCleaner{days: 7, block: make(chan struct{})}
	w, err := NewRetentionWorker(DefaultRetentionConfig(), cleaner, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.RunOnce(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return cleaner.callCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(cleaner.block)
	assert.NoError(t, <-done)
}

func TestRetentionWorker_StartStop(t *testing.T) {
	cleaner := &fakeCleaner{days: 1, removed: 1}
	w, err := NewRetentionWorker(RetentionConfig{Interval: 10 * time.Millisecond, Timeout: time.Second}, cleaner, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	// idempotent
	require.NoError(t, w.Start(context.Background()))

	require.Eventually(t, func() bool { return cleaner.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(ctx))
}

func TestRetentionWorker_Start_DisabledLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w, err := NewRetentionWorker(DefaultRetentionConfig(), &fakeCleaner{}, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	assert.False(t, w.IsRunning())
	assert.Equal(t, 1, logs.FilterMessage("Archive retention disabled, keeping documents forever").Len())
}
