package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// tempIDSource hands out temporary donation ids. Server ids are positive,
// temporary ids are negative, so the two ranges are disjoint. Every id
// issued in this process lifetime is remembered, and the caller's exists
// check guards against ids already sitting in the store from an earlier run.
type tempIDSource struct {
	mu   sync.Mutex
	used map[int64]struct{}
}

func newTempIDSource() *tempIDSource {
	return &tempIDSource{used: make(map[int64]struct{})}
}

func (s *tempIDSource) Next(ctx context.Context, exists func(context.Context, int64) (bool, error)) (int64, error) {
	for {
		id := randomTempID()

		s.mu.Lock()
		if _, taken := s.used[id]; taken {
			s.mu.Unlock()
			continue
		}
		s.used[id] = struct{}{}
		s.mu.Unlock()

		inStore, err := exists(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to check temporary id: %w", err)
		}
		if !inStore {
			return id, nil
		}
	}
}

func randomTempID() int64 {
	u := uuid.New()
	v := int64(binary.BigEndian.Uint64(u[:8]) >> 1)
	if v == 0 {
		v = 1
	}
	return -v
}

// keyedMutex serializes operations per donation id. Different ids proceed
// concurrently. Entries are never reclaimed: the map holds one mutex per id
// touched in the process lifetime, bounded by the number of donations a
// single client handles.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*sync.Mutex)}
}

func (k *keyedMutex) Lock(id int64) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
