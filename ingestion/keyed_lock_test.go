package ingestion

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLock_SerializesSameKey(t *testing.T) {
	locks := newKeyedLock()
	var (
		active    atomic.Int32
		maxActive atomic.Int32
		wg        sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("same.pdf")
			defer unlock()

			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Empty(t, locks.locks, "entries are removed when released")
}

func TestKeyedLock_DistinctKeysDoNotBlock(t *testing.T) {
	locks := newKeyedLock()

	unlockA := locks.Lock("a.pdf")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b.pdf")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()

	assert.Empty(t, locks.locks)
}
