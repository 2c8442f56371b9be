package directory

import "sync/atomic"

// idAllocator hands out strictly increasing int64 ids starting at 1.
// A value is never reissued, including after the user it was assigned to is
// deleted, so a recycled id can never resurrect a stale reference.
type idAllocator struct {
	last atomic.Int64
}

// next returns a fresh id distinct from every previously returned value.
func (a *idAllocator) next() int64 {
	return a.last.Add(1)
}

// advance raises the watermark so ids restored from a snapshot are never
// handed out again.
func (a *idAllocator) advance(id int64) {
	for {
		cur := a.last.Load()
		if id <= cur || a.last.CompareAndSwap(cur, id) {
			return
		}
	}
}
