package handler

import (
	"hash/fnv"
	"sync"
)

// stripedLocks serializes writes to the same (tenant, recordId) without
// a map entry per key: a fixed number of mutexes, picked by hashing the
// key, the way a connection pool or rate limiter shards a fixed number
// of buckets rather than growing unbounded.
type stripedLocks struct {
	mus [numStripes]sync.Mutex
}

const numStripes = 64

func (s *stripedLocks) lock(key string) func() {
	m := &s.mus[stripeIndex(key)]
	m.Lock()

	return m.Unlock
}

func stripeIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return h.Sum32() % numStripes
}
