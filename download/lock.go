package download

import (
	"sync"

	"github.com/cespare/xxhash"
)

// refLocker serializes work on the same reference without holding a lock per
// reference. Distinct references may share a mutex.
type refLocker struct {
	ms []sync.Mutex
}

func newRefLocker() refLocker {
	return refLocker{
		ms: make([]sync.Mutex, 256),
	}
}

func (b refLocker) Lock(ref string) {
	b.ms[xxhash.Sum64String(ref)%uint64(len(b.ms))].Lock()
}

func (b refLocker) Unlock(ref string) {
	b.ms[xxhash.Sum64String(ref)%uint64(len(b.ms))].Unlock()
}
