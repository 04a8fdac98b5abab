package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. A single mutex guards the map so
// consume-and-read is atomic under concurrent request tasks.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryRecord

	points        int
	duration      time.Duration
	blockDuration time.Duration
	nowF          func() time.Time
}

type memoryRecord struct {
	consumed     int
	windowEnd    time.Time
	blockedUntil time.Time // zero when not blocked
}

// NewMemoryStore returns a Store for one limiter instance. cfg.Points here is
// the effective threshold; use the limiter constructors unless testing.
func NewMemoryStore(points int, duration, blockDuration time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]*memoryRecord),
		points:        points,
		duration:      duration,
		blockDuration: blockDuration,
		nowF:          time.Now,
	}
}

// Consume grants one point for key, or returns *Rejection when the key is
// blocked or the window is exhausted. Blocked keys are not incremented, so
// consumed never grows past points+1 in the block flow.
func (s *MemoryStore) Consume(ctx context.Context, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowF()
	rec := s.live(key, now)
	if rec == nil {
		rec = &memoryRecord{windowEnd: now.Add(s.duration)}
		s.entries[key] = rec
	}

	if rec.blocked(now) {
		return Result{}, &Rejection{Result{
			ConsumedPoints: rec.consumed,
			MsBeforeNext:   durationMs(rec.blockedUntil.Sub(now)),
		}}
	}

	rec.consumed++
	if rec.consumed > s.points {
		ms := durationMs(rec.windowEnd.Sub(now))
		if s.blockDuration > 0 {
			rec.blockedUntil = now.Add(s.blockDuration)
			ms = durationMs(s.blockDuration)
		}
		return Result{}, &Rejection{Result{ConsumedPoints: rec.consumed, MsBeforeNext: ms}}
	}
	return Result{ConsumedPoints: rec.consumed, MsBeforeNext: durationMs(rec.windowEnd.Sub(now))}, nil
}

// Peek returns the key's current state without mutating it, or nil when there
// is no live record.
func (s *MemoryStore) Peek(ctx context.Context, key string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowF()
	rec := s.live(key, now)
	if rec == nil {
		return nil, nil
	}
	if rec.blocked(now) {
		return &Result{ConsumedPoints: rec.consumed, MsBeforeNext: durationMs(rec.blockedUntil.Sub(now))}, nil
	}
	return &Result{ConsumedPoints: rec.consumed, MsBeforeNext: durationMs(rec.windowEnd.Sub(now))}, nil
}

// Delete clears the key. Clearing an absent key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// live returns the record for key if its window or block is still running,
// dropping it otherwise. Callers must hold the mutex.
func (s *MemoryStore) live(key string, now time.Time) *memoryRecord {
	rec, ok := s.entries[key]
	if !ok {
		return nil
	}
	if rec.blocked(now) {
		return rec
	}
	if now.Before(rec.windowEnd) {
		return rec
	}
	delete(s.entries, key)
	return nil
}

func (r *memoryRecord) blocked(now time.Time) bool {
	return !r.blockedUntil.IsZero() && now.Before(r.blockedUntil)
}

func durationMs(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
