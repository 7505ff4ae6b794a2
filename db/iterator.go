package db

import (
	"iter"
	"sort"

	"github.com/arloliu/stampdb/encoding"
	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
	"github.com/arloliu/stampdb/ring"
	"github.com/arloliu/stampdb/section"
)

// Iterator streams the rows of one series inside a wrap-aware time window.
// It decodes one block at a time into fixed SoA buffers, so its working
// memory is constant regardless of how much data the range covers.
//
// An Iterator holds read-only references into the writer's zone map; it must
// not outlive a writer call. Issue queries strictly between writes.
type Iterator struct {
	db     *DB
	series uint16
	t0, t1 uint32

	order  []uint32 // candidate slots, ascending segment sequence
	segPos int
	page   uint32

	row   int
	count int

	deltas [stagingSlots]uint32
	qvals  [stagingSlots]int16
	times  [stagingSlots]uint32
	values [stagingSlots]float32

	pageBuf [format.PageBytes]byte
	budget  int
	done    bool
}

// QueryBegin opens an iterator over [t0MS, t1MS] for series. The window is
// wrap-aware: t1 "before" t0 selects the window that crosses the 32-bit
// wrap. Candidate segments are visited in sequence order so rows come out
// in insertion order even after the ring has wrapped.
func (db *DB) QueryBegin(series uint16, t0MS, t1MS uint32) (*Iterator, error) {
	if db == nil || db.closed {
		return nil, errs.ErrInvalidHandle
	}
	if series >= format.MaxSeries {
		return nil, errs.ErrInvalidSeries
	}

	it := &Iterator{
		db:     db,
		series: series,
		t0:     t0MS,
		t1:     t1MS,
		budget: int(db.ring.SegCount())*format.DataPagesPerSegment + 1,
	}

	summaries := db.ring.Summaries()
	it.order = make([]uint32, 0, len(summaries))
	for i := range summaries {
		if it.segmentMatches(&summaries[i]) {
			it.order = append(it.order, uint32(i))
		}
	}
	sort.Slice(it.order, func(a, b int) bool {
		return summaries[it.order[a]].Seqno < summaries[it.order[b]].Seqno
	})

	return it, nil
}

// segmentMatches applies the zone-map pruning rules: the slot must hold
// data, carry the series, and overlap the query window under wrap-aware
// containment.
func (it *Iterator) segmentMatches(sm *ring.Summary) bool {
	if !sm.HasData() || !sm.Bitmap.Has(it.series) {
		return false
	}

	return format.Overlaps(sm.TMin, sm.TMax, it.t0, it.t1)
}

// Next returns the next row inside the window, or ok=false when the
// iterator is exhausted.
func (it *Iterator) Next() (tsMS uint32, value float32, ok bool) {
	if it == nil || it.done {
		return 0, 0, false
	}

	for {
		for it.row < it.count {
			t := it.times[it.row]
			v := it.values[it.row]
			it.row++
			if format.InRange(t, it.t0, it.t1) {
				return t, v, true
			}
		}

		if !it.loadNextBlock() {
			it.done = true
			return 0, 0, false
		}
	}
}

// loadNextBlock advances to the next CRC-clean block of the query series
// and decodes it into the SoA buffers. Corruption never fails the query: an
// unreadable header abandons the rest of its segment (pages behind a torn
// rollover boundary), a payload CRC miss does the same after counting the
// error, and other segments are unaffected.
func (it *Iterator) loadNextBlock() bool {
	summaries := it.db.ring.Summaries()

	for it.segPos < len(it.order) {
		sm := &summaries[it.order[it.segPos]]

		for it.page < format.DataPagesPerSegment {
			if it.budget--; it.budget < 0 {
				return false
			}

			addr := sm.AddrFirst + it.page*format.PageBytes
			if it.db.dev.Read(addr, it.pageBuf[:]) != nil {
				break // abandon segment on read failure
			}

			hdr, err := section.ParseBlockHeader(it.pageBuf[format.PayloadBytes:])
			if err != nil {
				break // unpublished or torn page ends the segment
			}
			it.page++

			if hdr.Series != it.series {
				continue // foreign series: skip without touching the payload
			}

			payload := it.pageBuf[:format.PayloadBytes]
			if crc32c.Sum(payload) != hdr.PayloadCRC {
				it.db.crcErrors++
				break // corrupt payload poisons only the rest of this segment
			}

			count := int(hdr.Count)
			if count > stagingSlots ||
				encoding.DecodePayload(payload, hdr.DeltaWidth, it.deltas[:], it.qvals[:], count) != nil {
				break
			}

			t := hdr.T0MS
			for i := 0; i < count; i++ {
				t += it.deltas[i]
				it.times[i] = t
				it.values[i] = encoding.Dequantize(it.qvals[i], hdr.Bias, hdr.Scale)
			}
			it.count = count
			it.row = 0

			return true
		}

		it.segPos++
		it.page = 0
	}

	return false
}

// End finishes the query. It releases nothing externally and exists so call
// sites read begin/next/end.
func (it *Iterator) End() {
	if it != nil {
		it.done = true
	}
}

// All returns a range-over iterator of (ts, value) pairs for series inside
// [t0MS, t1MS]. It is a convenience wrapper over QueryBegin/Next/End:
//
//	for ts, v := range db.All(1, 0, 60_000) {
//	    ...
//	}
func (db *DB) All(series uint16, t0MS, t1MS uint32) iter.Seq2[uint32, float32] {
	return func(yield func(uint32, float32) bool) {
		it, err := db.QueryBegin(series, t0MS, t1MS)
		if err != nil {
			return
		}
		defer it.End()

		for {
			ts, v, ok := it.Next()
			if !ok {
				return
			}
			if !yield(ts, v) {
				return
			}
		}
	}
}

// QueryLatest returns the newest row of a series: the last row of the
// youngest CRC-clean block carrying it. It scans summaries from the newest
// sequence backwards and pages from the tail of each segment, so the cost
// is a handful of page reads.
func (db *DB) QueryLatest(series uint16) (tsMS uint32, value float32, err error) {
	if db == nil || db.closed {
		return 0, 0, errs.ErrInvalidHandle
	}
	if series >= format.MaxSeries {
		return 0, 0, errs.ErrInvalidSeries
	}

	summaries := db.ring.Summaries()
	order := make([]uint32, 0, len(summaries))
	for i := range summaries {
		if summaries[i].HasData() && summaries[i].Bitmap.Has(series) {
			order = append(order, uint32(i))
		}
	}
	sort.Slice(order, func(a, b int) bool {
		return summaries[order[a]].Seqno > summaries[order[b]].Seqno
	})

	page := make([]byte, format.PageBytes)
	for _, idx := range order {
		sm := &summaries[idx]
		for p := int(format.DataPagesPerSegment) - 1; p >= 0; p-- {
			addr := sm.AddrFirst + uint32(p)*format.PageBytes
			if db.dev.Read(addr, page) != nil {
				continue
			}
			hdr, herr := section.ParseBlockHeader(page[format.PayloadBytes:])
			if herr != nil || hdr.Series != series || hdr.Count == 0 {
				continue
			}

			payload := page[:format.PayloadBytes]
			if crc32c.Sum(payload) != hdr.PayloadCRC {
				db.crcErrors++
				continue // keep looking at older blocks
			}

			count := int(hdr.Count)
			t := encoding.LastTimestamp(payload, hdr.DeltaWidth, hdr.T0MS, count)

			qOff := count * hdr.DeltaWidth.Bytes()
			lastQ := int16(uint16(payload[qOff+(count-1)*2]) | uint16(payload[qOff+(count-1)*2+1])<<8)

			return t, encoding.Dequantize(lastQ, hdr.Bias, hdr.Scale), nil
		}
	}

	return 0, 0, errs.ErrNoData
}
