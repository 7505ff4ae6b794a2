// Package ring manages the circular log of 4 KiB segments: publishing
// blocks with the header-last commit protocol, sealing segments with footers
// at rollover, reclaiming the oldest segments under an erase quota, and
// recovering the head position at open.
package ring

import (
	"fmt"

	"github.com/arloliu/stampdb/encoding"
	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
	"github.com/arloliu/stampdb/meta"
	"github.com/arloliu/stampdb/section"
)

// Head cadence: a head hint is saved every hintBlockInterval published
// blocks or after hintTimeIntervalMS, whichever comes first.
const (
	hintBlockInterval  = 64
	hintTimeIntervalMS = 2000
)

// Head points at the next free page to program.
type Head struct {
	Addr      uint32 // absolute flash address of the next free page
	PageIndex uint32 // page within the current segment, 0..15
	Seqno     uint32 // current segment sequence
}

// Config carries the ring's external capabilities.
type Config struct {
	// Now returns monotonic milliseconds. Used only for the GC erase quota
	// window and the head-hint cadence; never persisted.
	Now func() uint64
}

// Ring owns the head, the zone map, and the flash primitives that mutate
// the data area. It is writer-owned and not safe for concurrent use.
type Ring struct {
	dev  flash.Device
	meta *meta.Store
	now  func() uint64

	segCount  uint32
	summaries []Summary

	head      Head
	tailSeqno uint32

	blocksWritten       uint32
	recoveryTruncations uint32
	lastHintMS          uint64

	// GC erase quota window.
	windowStartMS  uint64
	erasedInWindow uint32
	gcWarnEvents   uint32
	gcBusyEvents   uint32
}

// New creates a ring over the data area of dev (everything below the
// metadata region). The zone map is allocated here, once; Recover must run
// before the first Publish.
func New(dev flash.Device, store *meta.Store, cfg Config) (*Ring, error) {
	size := dev.SizeBytes()
	if size < format.MetaReservedBytes+format.SegmentBytes {
		return nil, errs.ErrDeviceTooSmall
	}

	segCount := (size - format.MetaReservedBytes) / format.SegmentBytes

	r := &Ring{
		dev:       dev,
		meta:      store,
		now:       cfg.Now,
		segCount:  segCount,
		summaries: make([]Summary, segCount),
	}
	for i := range r.summaries {
		r.summaries[i].AddrFirst = uint32(i) * format.SegmentBytes
		r.summaries[i].Reset()
	}

	return r, nil
}

// SegCount returns the number of segment slots in the ring.
func (r *Ring) SegCount() uint32 { return r.segCount }

// DataBytes returns the size of the data area in bytes.
func (r *Ring) DataBytes() uint32 { return r.segCount * format.SegmentBytes }

// Head returns the current ring head.
func (r *Ring) Head() Head { return r.head }

// TailSeqno returns the oldest live segment sequence.
func (r *Ring) TailSeqno() uint32 { return r.tailSeqno }

// Summaries returns the zone map. The slice is owned by the writer; readers
// must treat it as immutable between writer calls.
func (r *Ring) Summaries() []Summary { return r.summaries }

// BlocksWritten returns the number of blocks published since open.
func (r *Ring) BlocksWritten() uint32 { return r.blocksWritten }

// GCWarnEvents returns the number of times the free-space warn watermark
// (10%) was crossed on entry to a write.
func (r *Ring) GCWarnEvents() uint32 { return r.gcWarnEvents }

// GCBusyEvents returns the number of times the busy watermark (5%) was
// crossed or the erase quota forced a busy return.
func (r *Ring) GCBusyEvents() uint32 { return r.gcBusyEvents }

// RecoveryTruncations returns the number of torn tails discarded at open.
func (r *Ring) RecoveryTruncations() uint32 { return r.recoveryTruncations }

// segBase returns the segment base address containing addr.
func segBase(addr uint32) uint32 {
	return addr - addr%format.SegmentBytes
}

// footerAddr returns the footer page address of the segment at base.
func footerAddr(base uint32) uint32 {
	return base + (format.PagesPerSegment-1)*format.PageBytes
}

// parseBlockPage verifies the header and payload CRC of a raw page image
// and returns the parsed header with the 224-byte payload slice.
func parseBlockPage(page []byte) (section.BlockHeader, []byte, error) {
	hdr, err := section.ParseBlockHeader(page[format.PayloadBytes:])
	if err != nil {
		return section.BlockHeader{}, nil, err
	}

	payload := page[:format.PayloadBytes]
	if crc32c.Sum(payload) != hdr.PayloadCRC {
		return section.BlockHeader{}, nil, errs.ErrPayloadCRCMismatch
	}

	return hdr, payload, nil
}

// isBlankPage reports whether a page is still erased flash.
func isBlankPage(page []byte) bool {
	for _, b := range page {
		if b != 0xFF {
			return false
		}
	}

	return true
}

// readBlock reads one data page, verifies its header and payload CRC, and
// returns the parsed header with the raw 224-byte payload.
func (r *Ring) readBlock(pageAddr uint32) (section.BlockHeader, []byte, error) {
	page := make([]byte, format.PageBytes)
	if err := r.dev.Read(pageAddr, page); err != nil {
		return section.BlockHeader{}, nil, fmt.Errorf("ring: read page 0x%X: %w", pageAddr, err)
	}

	return parseBlockPage(page)
}

// readFooter reads and verifies the footer of the segment at base.
func (r *Ring) readFooter(base uint32) (section.SegmentFooter, error) {
	page := make([]byte, format.PageBytes)
	if err := r.dev.Read(footerAddr(base), page); err != nil {
		return section.SegmentFooter{}, fmt.Errorf("ring: read footer 0x%X: %w", base, err)
	}

	return section.ParseSegmentFooter(page)
}

// Publish commits one prepared block to the page at the head using the
// header-last protocol: the payload image is programmed first with the
// header area left erased, then the header image with the payload area all
// 0xFF. NOR 1→0 programming ANDs the two images together, so a power cut
// between the steps leaves an unpublished page that recovery truncates.
func (r *Ring) Publish(hdr *section.BlockHeader, payload []byte) error {
	if len(payload) != format.PayloadBytes {
		return errs.ErrInvalidPageSize
	}

	// Recovery can park the head on a full, unsealed segment; seal it and
	// rotate before taking the next block.
	if r.head.PageIndex >= format.DataPagesPerSegment {
		if err := r.finalizeAndRotate(); err != nil {
			return err
		}
	}

	pageAddr := r.head.Addr

	page := make([]byte, format.PageBytes)
	copy(page, payload)
	for i := format.PayloadBytes; i < format.PageBytes; i++ {
		page[i] = 0xFF
	}
	if err := r.dev.Program256(pageAddr, page); err != nil {
		return fmt.Errorf("ring: program payload 0x%X: %w", pageAddr, err)
	}

	for i := 0; i < format.PayloadBytes; i++ {
		page[i] = 0xFF
	}
	copy(page[format.PayloadBytes:], hdr.Bytes())
	if err := r.dev.Program256(pageAddr, page); err != nil {
		return fmt.Errorf("ring: program header 0x%X: %w", pageAddr, err)
	}

	r.blocksWritten++
	r.head.PageIndex++
	r.head.Addr += format.PageBytes

	r.foldIntoSummary(pageAddr, hdr, payload)

	if r.head.PageIndex >= format.DataPagesPerSegment {
		if err := r.finalizeAndRotate(); err != nil {
			return err
		}
	}

	now := r.now()
	if r.blocksWritten%hintBlockInterval == 0 || now-r.lastHintMS >= hintTimeIntervalMS {
		// Advisory only; a failed hint save costs recovery time, not data.
		_ = r.meta.SaveHeadHint(r.head.Addr, r.head.Seqno)
		r.lastHintMS = now
	}

	return nil
}

// foldIntoSummary live-updates the zone map for a freshly published block.
func (r *Ring) foldIntoSummary(pageAddr uint32, hdr *section.BlockHeader, payload []byte) {
	idx := pageAddr / format.SegmentBytes
	sm := &r.summaries[idx]
	if !sm.Valid {
		sm.Valid = true
		sm.Seqno = r.head.Seqno
		sm.AddrFirst = idx * format.SegmentBytes
	}

	foldBlock(sm, hdr, payload)
}

// foldBlock folds one verified block into a summary. The last row timestamp
// comes from the delta lane alone; qvals are never decoded on this path.
func foldBlock(sm *Summary, hdr *section.BlockHeader, payload []byte) {
	lastT := encoding.LastTimestamp(payload, hdr.DeltaWidth, hdr.T0MS, int(hdr.Count))
	if sm.BlockCount == 0 {
		sm.TMin = hdr.T0MS
		sm.TMax = lastT
	} else {
		if !format.LE(sm.TMin, hdr.T0MS) {
			sm.TMin = hdr.T0MS
		}
		if !format.LE(lastT, sm.TMax) {
			sm.TMax = lastT
		}
	}
	sm.BlockCount++
	sm.Bitmap.Set(hdr.Series)
}

// finalizeAndRotate seals the current segment with a footer aggregated from
// a scan of its 15 data pages, then erases the next slot and moves the head
// into it. The scan stops at the first unreadable page, which matches how
// recovery and queries treat the segment.
func (r *Ring) finalizeAndRotate() error {
	base := segBase(r.head.Addr - format.PageBytes)

	agg := Summary{TMin: 0xFFFFFFFF}
	for p := uint32(0); p < format.DataPagesPerSegment; p++ {
		hdr, payload, err := r.readBlock(base + p*format.PageBytes)
		if err != nil {
			break
		}
		foldBlock(&agg, &hdr, payload)
	}

	footer := section.SegmentFooter{
		Seqno:      r.head.Seqno,
		TMin:       agg.TMin,
		TMax:       agg.TMax,
		BlockCount: agg.BlockCount,
		Bitmap:     agg.Bitmap,
	}

	if err := r.dev.Program256(footerAddr(base), footer.PageBytes()); err != nil {
		return fmt.Errorf("ring: program footer 0x%X: %w", base, err)
	}

	nextBase := (base + format.SegmentBytes) % r.DataBytes()
	if err := r.dev.Erase4K(nextBase); err != nil {
		return fmt.Errorf("ring: erase segment 0x%X: %w", nextBase, err)
	}

	r.head.Seqno++
	r.head.Addr = nextBase
	r.head.PageIndex = 0

	idx := nextBase / format.SegmentBytes
	sm := &r.summaries[idx]
	sm.AddrFirst = nextBase
	sm.Seqno = r.head.Seqno
	sm.Reset()
	sm.Valid = true

	return nil
}

// SaveSnapshot persists the ring head, the oldest live sequence, and the
// caller's epoch counter to the A/B metadata sectors.
func (r *Ring) SaveSnapshot(epochID uint32) error {
	tail := uint32(0xFFFFFFFF)
	for i := range r.summaries {
		if r.summaries[i].HasData() && r.summaries[i].Seqno < tail {
			tail = r.summaries[i].Seqno
		}
	}
	if tail == 0xFFFFFFFF {
		tail = r.head.Seqno
	}

	rec := section.NewSnapshotRecord(epochID, r.head.Seqno, tail, r.head.Addr)

	return r.meta.SaveSnapshot(rec)
}
