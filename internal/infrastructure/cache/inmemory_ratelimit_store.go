package cache

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int64
	expiresAt time.Time
}

// InMemoryRateLimitStore implements RateLimitStore with a map.
// Limits only hold per process.
type InMemoryRateLimitStore struct {
	mu        sync.Mutex
	windows   map[string]*window
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateLimitStore creates a store and starts the goroutine that
// drops expired windows. Call Close to stop it.
func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	s := &InMemoryRateLimitStore{
		windows:  make(map[string]*window),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop(time.Minute)
	return s
}

// Hit records a request for key
func (s *InMemoryRateLimitStore) Hit(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(d)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.expiresAt.Sub(now), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryRateLimitStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryRateLimitStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryRateLimitStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
		}
	}
}

// Size returns the number of live windows
func (s *InMemoryRateLimitStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

var _ RateLimitStore = (*InMemoryRateLimitStore)(nil)
