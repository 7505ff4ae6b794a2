package ring

import "github.com/arloliu/stampdb/section"

// Summary is the in-RAM zone-map entry for one physical segment slot. The
// writer keeps it current while publishing; queries use it to prune reads.
// Location on flash is implied by the slot index and the fixed geometry, so
// no pointers into flash are held.
type Summary struct {
	AddrFirst  uint32 // flash address of the slot's first data page
	Seqno      uint32 // segment sequence, monotonic over device life
	TMin       uint32 // earliest block start timestamp
	TMax       uint32 // latest reconstructed timestamp
	BlockCount uint32 // committed blocks, 0..15
	Bitmap     section.SeriesBitmap
	Valid      bool
}

// Reset clears the summary to the empty state used for a freshly erased
// slot. Valid is left untouched: a reclaimed slot stays valid with zero
// blocks until the head rotates into it and assigns a new sequence.
func (s *Summary) Reset() {
	s.TMin = 0xFFFFFFFF
	s.TMax = 0
	s.BlockCount = 0
	s.Bitmap.Clear()
}

// HasData reports whether the slot holds at least one committed block.
func (s *Summary) HasData() bool {
	return s.Valid && s.BlockCount > 0
}
