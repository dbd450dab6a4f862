package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func neverExists(context.Context, int64) (bool, error) {
	return false, nil
}

func TestTempIDSource_UniqueAndNegative(t *testing.T) {
	src := newTempIDSource()
	ctx := context.Background()

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id, err := src.Next(ctx, neverExists)
		assert.NoError(t, err)
		assert.Less(t, id, int64(0))
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
}

func TestTempIDSource_SkipsIDsInStore(t *testing.T) {
	src := newTempIDSource()

	// First candidate is "already in the store"; the source must move on.
	calls := 0
	exists := func(context.Context, int64) (bool, error) {
		calls++
		return calls == 1, nil
	}

	id, err := src.Next(context.Background(), exists)
	assert.NoError(t, err)
	assert.Less(t, id, int64(0))
	assert.Equal(t, 2, calls)
}

func TestTempIDSource_Concurrent(t *testing.T) {
	src := newTempIDSource()
	ctx := context.Background()

	const n = 100
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := src.Next(ctx, neverExists)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestKeyedMutex_SerializesSameID(t *testing.T) {
	locks := newKeyedMutex()

	var inCritical int
	var maxSeen int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(7)
			defer unlock()

			mu.Lock()
			inCritical++
			if inCritical > maxSeen {
				maxSeen = inCritical
			}
			mu.Unlock()

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
