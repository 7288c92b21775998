// ABOUTME: Sharded per-ticket locks used to serialize ticket updates
// ABOUTME: Concurrent updates for the same ticket id run one at a time

package store

import "sync"

// lockShards is the fixed number of lock shards. Collisions across
// tickets only cost unnecessary serialization, never correctness.
const lockShards = 64

// TicketLocks serializes updates per ticket id. Two concurrent updates
// for the same ticket always map to the same shard and therefore run
// one after the other.
type TicketLocks struct {
	shards [lockShards]sync.Mutex
}

// NewTicketLocks creates an empty lock set
func NewTicketLocks() *TicketLocks {
	return &TicketLocks{}
}

// Lock acquires the shard for the given ticket id and returns the
// matching unlock function.
func (l *TicketLocks) Lock(ticketID int64) func() {
	shard := &l.shards[uint64(ticketID)%lockShards]
	shard.Lock()
	return shard.Unlock
}
