package ring

import (
	"runtime"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
)

// Free-space watermarks in percent of the ring, and the erase quota that
// spreads reclaim cost over time.
const (
	gcWarnPercent  = 10
	gcBusyPercent  = 5
	gcQuotaErases  = 2
	gcQuotaWindowMS = 1000
)

// ReclaimIfNeeded runs garbage collection ahead of a write. While at least
// 10% of the slots are free it does nothing. Below that it erases the
// oldest live segment, subject to a quota of 2 erases per 1000 ms window;
// with the quota spent it either spins until the window rolls or, in
// non-blocking mode, returns errs.ErrBusy.
func (r *Ring) ReclaimIfNeeded(nonBlocking bool) error {
	used := uint32(0)
	for i := range r.summaries {
		if r.summaries[i].HasData() {
			used++
		}
	}
	free := r.segCount - used

	if free*100 >= gcWarnPercent*r.segCount {
		return nil
	}
	r.gcWarnEvents++
	if free*100 < gcBusyPercent*r.segCount {
		r.gcBusyEvents++
	}

	now := r.now()
	if now-r.windowStartMS >= gcQuotaWindowMS {
		r.windowStartMS = now
		r.erasedInWindow = 0
	}
	if r.erasedInWindow >= gcQuotaErases {
		if nonBlocking {
			r.gcBusyEvents++
			return errs.ErrBusy
		}
		for r.now()-r.windowStartMS < gcQuotaWindowMS {
			runtime.Gosched()
		}
		r.windowStartMS = r.now()
		r.erasedInWindow = 0
	}

	// Reclaim the oldest live segment; the slot is immediately reusable and
	// gets a fresh sequence when the head rotates into it.
	oldestSeq := uint32(0xFFFFFFFF)
	oldestIdx := uint32(0)
	for i := range r.summaries {
		if r.summaries[i].HasData() && r.summaries[i].Seqno < oldestSeq {
			oldestSeq = r.summaries[i].Seqno
			oldestIdx = uint32(i)
		}
	}
	if oldestSeq == 0xFFFFFFFF {
		return nil // nothing reclaimable; the ring is mostly unwritten
	}

	if err := r.dev.Erase4K(oldestIdx * format.SegmentBytes); err != nil {
		return err
	}
	r.summaries[oldestIdx].Reset()
	r.erasedInWindow++

	// The tail moved: it is now the oldest sequence still holding data.
	tail := uint32(0xFFFFFFFF)
	for i := range r.summaries {
		if r.summaries[i].HasData() && r.summaries[i].Seqno < tail {
			tail = r.summaries[i].Seqno
		}
	}
	if tail == 0xFFFFFFFF {
		tail = r.head.Seqno
	}
	r.tailSeqno = tail

	return nil
}
