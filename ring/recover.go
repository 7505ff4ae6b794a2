package ring

import (
	"errors"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
)

// Recover rebuilds the zone map and locates the ring head. It runs exactly
// once, at open, before any write:
//
//  1. Footer sweep: every finalized segment contributes its summary.
//  2. Head seeding: a valid snapshot wins; otherwise the newest footer plus
//     one; otherwise the device is treated as blank with the head at slot 0.
//  3. Head-hint probe: a valid hint pointing into the data area overrides
//     the seeded head, since hints are saved far more often than snapshots.
//  4. Tail probe: pages of the head segment are verified in order and the
//     head lands on the first invalid one. A fully valid, finalized segment
//     means the seed was stale across a rollover, so the probe hops to the
//     next slot, rebuilding footerless summaries from page scans as it
//     goes. Truncating after at least one valid page counts as a recovery
//     truncation.
//
// The page budget caps the tail probe's data-page reads at segCount*15+1 so
// a pathologically corrupt device cannot stall open; the cap aborts at the
// last safe head.
//
// Recover returns the epoch counter seeded from the snapshot (zero without
// one) for the caller to resume wrap tracking.
func (r *Ring) Recover() (epochID uint32, err error) {
	budget := int(r.segCount)*format.DataPagesPerSegment + 1

	anyFooter := false
	for i := uint32(0); i < r.segCount; i++ {
		base := i * format.SegmentBytes
		footer, ferr := r.readFooter(base)
		if ferr != nil {
			if !isRecordError(ferr) {
				return 0, ferr // device I/O failure, not a missing footer
			}
			continue
		}

		sm := &r.summaries[i]
		sm.AddrFirst = base
		sm.Seqno = footer.Seqno
		sm.TMin = footer.TMin
		sm.TMax = footer.TMax
		sm.BlockCount = footer.BlockCount
		sm.Bitmap = footer.Bitmap
		sm.Valid = true
		anyFooter = true
	}

	if snap, serr := r.meta.LoadSnapshot(); serr == nil {
		r.head.Addr = snap.HeadAddr
		r.head.PageIndex = (snap.HeadAddr % format.SegmentBytes) / format.PageBytes
		r.head.Seqno = snap.SeqHead
		r.tailSeqno = snap.SeqTail
		epochID = snap.EpochID
	} else if anyFooter {
		bestIdx, bestSeq := uint32(0), uint32(0)
		found := false
		for i := range r.summaries {
			if r.summaries[i].Valid && (!found || r.summaries[i].Seqno > bestSeq) {
				found = true
				bestSeq = r.summaries[i].Seqno
				bestIdx = uint32(i)
			}
		}
		r.head.Seqno = bestSeq + 1
		r.head.Addr = bestIdx * format.SegmentBytes // probe start; refined below
		r.head.PageIndex = 0
		r.tailSeqno = bestSeq - (r.segCount - 1)
	} else {
		r.head = Head{Addr: 0, PageIndex: 0, Seqno: 1}
		r.tailSeqno = 1
	}

	if hint, herr := r.meta.LoadHeadHint(); herr == nil && hint.Addr < r.DataBytes() {
		r.head.Addr = hint.Addr
		r.head.PageIndex = (hint.Addr % format.SegmentBytes) / format.PageBytes
		r.head.Seqno = hint.Seq
	}

	r.probeTail(&budget)
	r.lastHintMS = r.now()

	return epochID, nil
}

// probeTail walks forward from the seeded head segment until it finds the
// first free (or torn) page. A segment that is completely valid and carries
// a footer was sealed by a rollover the seed missed, so the probe hops into
// the next slot; a complete segment without a footer is the head itself,
// parked at page 15 with its finalize pending (Publish seals it first).
func (r *Ring) probeTail(budget *int) {
	idx := segBase(r.head.Addr) / format.SegmentBytes

	for hop := uint32(0); hop <= r.segCount; hop++ {
		base := idx * format.SegmentBytes

		probe := Summary{AddrFirst: base, Seqno: r.head.Seqno}
		probe.Reset()
		firstFree := uint32(0)
		hadValid, truncated := false, false
		page := make([]byte, format.PageBytes)
		for p := uint32(0); p < format.DataPagesPerSegment; p++ {
			if *budget--; *budget < 0 {
				break
			}
			if r.dev.Read(base+p*format.PageBytes, page) != nil {
				firstFree = p
				break
			}
			if isBlankPage(page) {
				// Still-erased flash is the natural end of the tail, not a
				// torn write.
				firstFree = p
				break
			}
			hdr, payload, berr := parseBlockPage(page)
			if berr != nil {
				firstFree = p
				truncated = true
				break
			}
			hadValid = true
			firstFree = p + 1
			foldBlock(&probe, &hdr, payload)
		}

		if !fromFooterSummary(&r.summaries[idx]) {
			probe.Valid = true
			r.summaries[idx] = probe
		}

		if firstFree < format.DataPagesPerSegment {
			if truncated && hadValid {
				r.recoveryTruncations++
			}
			r.head.PageIndex = firstFree
			r.head.Addr = base + firstFree*format.PageBytes

			return
		}

		if _, ferr := r.readFooter(base); ferr != nil {
			// Full but unsealed: the crash interrupted the rollover.
			// Publish finalizes this segment before the next block.
			r.head.PageIndex = format.DataPagesPerSegment
			r.head.Addr = base + format.DataPagesPerSegment*format.PageBytes

			return
		}

		r.head.Seqno = r.summaries[idx].Seqno + 1
		idx = (idx + 1) % r.segCount
	}
}

// fromFooterSummary reports whether a summary was already populated by the
// footer sweep, i.e. its segment is finalized.
func fromFooterSummary(sm *Summary) bool {
	return sm.Valid && sm.BlockCount > 0
}

// isRecordError reports whether err means "no valid record here" rather
// than a device failure.
func isRecordError(err error) bool {
	return errors.Is(err, errs.ErrInvalidMagicNumber) ||
		errors.Is(err, errs.ErrRecordCRCMismatch) ||
		errors.Is(err, errs.ErrHeaderCRCMismatch) ||
		errors.Is(err, errs.ErrPayloadCRCMismatch) ||
		errors.Is(err, errs.ErrInvalidDeltaWidth) ||
		errors.Is(err, errs.ErrInvalidHeaderSize) ||
		errors.Is(err, errs.ErrInvalidPageSize)
}
