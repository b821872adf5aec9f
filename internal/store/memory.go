package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used for local development and tests.
// State does not survive a restart; in deployed environments redis (or
// sqlite) holds the durable copy.
type Memory struct {
	mu      sync.Mutex
	items   map[string]memoryEntry
	done    chan struct{}
	closeMu sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an in-memory store with a background expiry sweep.
func NewMemory() *Memory {
	s := &Memory{
		items: make(map[string]memoryEntry),
		done:  make(chan struct{}),
	}
	go s.sweepLoop(time.Minute)
	return s
}

func (s *Memory) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.items {
				if now.After(e.expiresAt) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// get returns the live entry for key, dropping it if expired.
func (s *Memory) get(key string) (memoryEntry, bool) {
	e, ok := s.items[key]
	if !ok {
		return memoryEntry{}, false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.items, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *Memory) Create(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); ok {
		return ErrConflict
	}
	s.items[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *Memory) Close() error {
	s.closeMu.Do(func() { close(s.done) })
	return nil
}
