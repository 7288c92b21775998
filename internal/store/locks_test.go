// ABOUTME: Tests for sharded per-ticket locks
// ABOUTME: Verifies same-ticket updates are serialized under concurrency

package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketLocks_SerializesSameTicket(t *testing.T) {
	locks := NewTicketLocks()

	const workers = 32
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(42)
			defer unlock()
			// Racy without the lock: read, then write
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestTicketLocks_SameTicketSameShard(t *testing.T) {
	locks := NewTicketLocks()

	unlock := locks.Lock(7)
	done := make(chan struct{})
	go func() {
		u := locks.Lock(7)
		u()
		close(done)
	}()

	// Give the goroutine time to reach the lock before checking
	time.Sleep(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second lock acquired while first still held")
	default:
	}

	unlock()
	<-done
}
