package store

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedLock serializes read-modify-write cycles on the same key within
// this process.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLock) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
