// Package scheduler runs the periodic maintenance of the quote archive.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ArchiveCleaner is an archive that can drop old documents
type ArchiveCleaner interface {
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
	RetentionDays() int
}

// RetentionConfig holds configuration for the retention worker
type RetentionConfig struct {
	// Interval is the time between two cleanup passes
	Interval time.Duration
	// Timeout bounds a single pass
	Timeout time.Duration
}

// DefaultRetentionConfig returns default retention configuration
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Interval: 6 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// Validate checks the configuration
func (c RetentionConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// RetentionWorker deletes archived PDFs older than the archive's retention
// period. A pass runs at start and then every Interval.
type RetentionWorker struct {
	config  RetentionConfig
	archive ArchiveCleaner
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	cleaning  bool
	lastRun   time.Time
	removed   int
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(config RetentionConfig, archive ArchiveCleaner, logger *zap.Logger) (*RetentionWorker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, fmt.Errorf("%w: archive is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionWorker{
		config:  config,
		archive: archive,
		logger:  logger.Named("retention"),
	}, nil
}

// Enabled reports whether the archive has a retention period
func (w *RetentionWorker) Enabled() bool {
	return w.archive.RetentionDays() > 0
}

// Start starts the worker. It is a no-op when the archive keeps documents forever.
func (w *RetentionWorker) Start(ctx context.Context) error {
	if !w.Enabled() {
		w.logger.Info("Archive retention disabled, keeping documents forever")
		return nil
	}

	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.runLoop(ctx)

	w.logger.Info("Archive retention worker started",
		zap.Int("retention_days", w.archive.RetentionDays()),
		zap.Duration("interval", w.config.Interval),
	)
	return nil
}

// Stop stops the worker and waits for a pass in progress
func (w *RetentionWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Archive retention worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (w *RetentionWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// LastRun returns the time of the last completed pass and the number of
// documents it removed
func (w *RetentionWorker) LastRun() (time.Time, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.removed
}

func (w *RetentionWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	w.runPass(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *RetentionWorker) runPass(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("Archive cleanup failed", zap.Error(err))
	}
}

// RunOnce runs a single cleanup pass and returns the number of removed documents
func (w *RetentionWorker) RunOnce(ctx context.Context) (int, error) {
	days := w.archive.RetentionDays()
	if days <= 0 {
		return 0, nil
	}

	w.mu.Lock()
	if w.cleaning {
		w.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	w.cleaning = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.cleaning = false
		w.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	removed, err := w.archive.CleanupOlderThan(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return removed, fmt.Errorf("failed to clean up archive: %w", err)
	}

	w.mu.Lock()
	w.lastRun = time.Now()
	w.removed = removed
	w.mu.Unlock()

	w.logger.Info("Archive cleanup completed",
		zap.Int("removed", removed),
		zap.Int("retention_days", days),
		zap.Duration("elapsed", time.Since(start)),
	)
	return removed, nil
}
