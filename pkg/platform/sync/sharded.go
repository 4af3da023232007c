// Package sync provides keyed locking for work that must not run twice
// concurrently for the same key.
package sync

import (
	"sync"
)

// ShardedMutex serializes callers sharing a key without one global lock.
// Keys hash onto a fixed set of shards, so unrelated keys may occasionally
// share a shard; callers must not hold two keys at once.
type ShardedMutex struct {
	shards [32]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the shard of key. Empty keys use shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the shard of key.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString is a 31-multiplier string hash; distribution matters, not strength.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
