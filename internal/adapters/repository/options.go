package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxViews bounds the number of open views. Zero or negative means
// unbounded.
func WithMaxViews(n int) Option {
	return func(s *MemoryStore) {
		s.maxViews = n
	}
}

// WithIdleTTL closes views that have not been used for ttl. Zero disables
// expiry.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.idleTTL = ttl
		}
	}
}

// WithSweepInterval sets the interval for the background expiry sweep.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
