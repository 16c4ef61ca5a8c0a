package classify

import (
	"sync"
	"time"
)

// SeenSet remembers recently accepted event identity keys so that the
// edited/re-delivered variant of the same logical event is not processed
// twice. Entries expire after a TTL and the set is bounded; when full, the
// oldest entry is evicted. Safe for concurrent use: the Slack socket loop
// and the dispatcher run on different goroutines.
type SeenSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	max     int
	now     func() time.Time
}

const (
	defaultSeenTTL = 10 * time.Minute
	defaultSeenMax = 1024
)

// NewSeenSet creates a SeenSet. Non-positive arguments select the defaults.
func NewSeenSet(ttl time.Duration, max int) *SeenSet {
	if ttl <= 0 {
		ttl = defaultSeenTTL
	}
	if max <= 0 {
		max = defaultSeenMax
	}
	return &SeenSet{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// Seen reports whether key is live in the set. It never inserts: only
// accepted events are recorded, via Mark, so a rejected first delivery does
// not suppress a later replay of the same identity.
func (s *SeenSet) Seen(key string) bool {
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(s.now())
	_, ok := s.entries[key]
	return ok
}

// Mark records key as accepted. Re-marking a live key keeps its original
// insertion time (insert-if-absent).
func (s *SeenSet) Mark(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	if _, ok := s.entries[key]; ok {
		return
	}
	if len(s.entries) >= s.max {
		s.evictOldest()
	}
	s.entries[key] = now
}

// Len returns the current number of live entries.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.now())
	return len(s.entries)
}

func (s *SeenSet) prune(now time.Time) {
	for k, t := range s.entries {
		if now.Sub(t) > s.ttl {
			delete(s.entries, k)
		}
	}
}

func (s *SeenSet) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, t := range s.entries {
		if first || t.Before(oldest) {
			oldestKey, oldest = k, t
			first = false
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}
