package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/koishow/pkg/metrics"
)

// MemoryStore is an in-memory Store. Views idle for longer than the
// configured TTL are closed by a background sweep and on access.
type MemoryStore struct {
	mu    sync.Mutex
	views map[string]*slot

	maxViews      int
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	stopChan  chan struct{}
	closeOnce sync.Once
}

type slot struct {
	view    *View
	touched time.Time
}

// NewMemoryStore creates a store and starts the expiry sweep, which runs
// until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		views:         make(map[string]*slot),
		maxViews:      1000,
		idleTTL:       30 * time.Minute,
		sweepInterval: time.Minute,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idleTTL > 0 {
		s.startSweeper(ctx)
	}
	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	return nil
}

// Put adds a view.
func (s *MemoryStore) Put(ctx context.Context, v *View) error {
	if v == nil || v.ID == "" {
		return errors.New("repository: view id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[v.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, v.ID)
	}
	if s.maxViews > 0 && len(s.views) >= s.maxViews {
		s.sweepLocked()
		if len(s.views) >= s.maxViews {
			return fmt.Errorf("%w: limit %d", ErrCapacity, s.maxViews)
		}
	}
	s.views[v.ID] = &slot{view: v, touched: s.now()}
	metrics.UpdateActiveViews(len(s.views))
	return nil
}

// Get returns the view with id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	now := s.now()
	if s.expired(sl, now) {
		delete(s.views, id)
		metrics.RecordViewsExpired(1)
		metrics.UpdateActiveViews(len(s.views))
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sl.touched = now
	return sl.view, nil
}

// Delete removes the view with id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.views, id)
	metrics.UpdateActiveViews(len(s.views))
	return nil
}

// Count returns the number of views held, including ones not yet swept.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep closes every expired view and returns how many were removed.
func (s *MemoryStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *MemoryStore) sweepLocked() int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()
	removed := 0
	for id, sl := range s.views {
		if s.expired(sl, now) {
			delete(s.views, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.RecordViewsExpired(removed)
		metrics.UpdateActiveViews(len(s.views))
	}
	return removed
}

func (s *MemoryStore) expired(sl *slot, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(sl.touched) > s.idleTTL
}
