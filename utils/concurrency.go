package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines, spacing job starts
// by at least rateLimit.
type WorkerPool struct {
	rateLimit   time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool. maxWorkers below 1 is treated as 1.
func NewWorkerPool(maxWorkers int, rateLimit time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		rateLimit: rateLimit,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// Submit runs job on a free worker, blocking while all workers are busy.
// It returns ctx.Err() without running job if ctx ends first.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	select {
	case wp.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
	return nil
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.rateLimit <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	elapsed := time.Since(wp.lastRequest)
	if elapsed < wp.rateLimit {
		time.Sleep(wp.rateLimit - elapsed)
	}
	wp.lastRequest = time.Now()
}

// FingerprintSet is a thread-safe set of listing fingerprints.
type FingerprintSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewFingerprintSet creates a set holding the given fingerprints.
func NewFingerprintSet(fps ...string) *FingerprintSet {
	s := &FingerprintSet{seen: make(map[string]struct{}, len(fps))}
	for _, fp := range fps {
		s.seen[fp] = struct{}{}
	}
	return s
}

// Add returns true if fp was newly added, false if already present.
func (s *FingerprintSet) Add(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[fp]; exists {
		return false
	}
	s.seen[fp] = struct{}{}
	return true
}

// Contains returns true if fp is in the set.
func (s *FingerprintSet) Contains(fp string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[fp]
	return exists
}

// Size returns the number of fingerprints tracked.
func (s *FingerprintSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Slice returns the members in no particular order.
func (s *FingerprintSet) Slice() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.seen))
	for fp := range s.seen {
		out = append(out, fp)
	}
	return out
}
