package sync

import (
	"sync"
)

const shardCount = 32

// ShardedRWMutex provides per-key reader/writer locking.
// Keys are hashed onto a fixed set of shards so unrelated keys rarely contend,
// while every operation on the same key observes one lock.
type ShardedRWMutex struct {
	shards [shardCount]sync.RWMutex
}

// NewShardedRWMutex creates a new ShardedRWMutex with 32 shards.
func NewShardedRWMutex() *ShardedRWMutex {
	return &ShardedRWMutex{}
}

// Lock acquires the exclusive lock for the given key's shard.
// Empty keys default to shard 0.
func (m *ShardedRWMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the exclusive lock for the given key's shard.
func (m *ShardedRWMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// RLock acquires a shared lock for the given key's shard.
func (m *ShardedRWMutex) RLock(key string) {
	m.shards[m.shardFor(key)].RLock()
}

// RUnlock releases a shared lock for the given key's shard.
func (m *ShardedRWMutex) RUnlock(key string) {
	m.shards[m.shardFor(key)].RUnlock()
}

// shardFor returns the shard index for the given key.
func (m *ShardedRWMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString provides a simple hash for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
