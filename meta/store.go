// Package meta persists the snapshot and head-hint records in the reserved
// region at the top of the flash device.
//
// The region holds three live 4 KiB sectors: snapshot copies A and B in
// rotation, and one head-hint sector. A save erases its target sector and
// programs a single 256-byte page with the record at offset 0 and 0xFF
// beyond. Atomicity falls out of erase-before-program plus the record CRC: a
// save torn at any byte leaves the other snapshot copy intact and the torn
// sector either blank (all 0xFF, treated as missing) or CRC-invalid.
package meta

import (
	"fmt"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/section"
)

// Sector offsets within the reserved region.
const (
	snapAOffset = 0 * flash.EraseBytes
	snapBOffset = 1 * flash.EraseBytes
	hintOffset  = 2 * flash.EraseBytes
)

// Store reads and writes metadata records on a flash device.
type Store struct {
	dev  flash.Device
	base uint32 // start of the reserved region
}

// NewStore creates a store for the top format.MetaReservedBytes of dev.
func NewStore(dev flash.Device) (*Store, error) {
	size := dev.SizeBytes()
	if size < format.MetaReservedBytes+format.SegmentBytes {
		return nil, errs.ErrDeviceTooSmall
	}

	return &Store{dev: dev, base: size - format.MetaReservedBytes}, nil
}

// readRecordPage reads the first page of a sector and reports whether it is
// blank (never written or erased).
func (s *Store) readRecordPage(sectorOffset uint32) ([]byte, bool, error) {
	page := make([]byte, flash.ProgramBytes)
	if err := s.dev.Read(s.base+sectorOffset, page); err != nil {
		return nil, false, fmt.Errorf("meta: read sector: %w", err)
	}

	for _, b := range page {
		if b != 0xFF {
			return page, false, nil
		}
	}

	return page, true, nil
}

// saveRecordPage erases the sector and programs one page holding record.
func (s *Store) saveRecordPage(sectorOffset uint32, record []byte) error {
	addr := s.base + sectorOffset
	if err := s.dev.Erase4K(addr); err != nil {
		return fmt.Errorf("meta: erase sector: %w", err)
	}

	page := make([]byte, flash.ProgramBytes)
	for i := range page {
		page[i] = 0xFF
	}
	copy(page, record)

	if err := s.dev.Program256(addr, page); err != nil {
		return fmt.Errorf("meta: program sector: %w", err)
	}

	return nil
}

// LoadSnapshot returns the newest valid snapshot of the A/B pair, preferring
// the one with the larger head sequence. It returns errs.ErrRecordMissing
// when neither sector holds a valid record.
func (s *Store) LoadSnapshot() (section.SnapshotRecord, error) {
	var (
		best  section.SnapshotRecord
		found bool
	)

	for _, off := range [2]uint32{snapAOffset, snapBOffset} {
		page, blank, err := s.readRecordPage(off)
		if err != nil {
			return section.SnapshotRecord{}, err
		}
		if blank {
			continue
		}

		var rec section.SnapshotRecord
		if rec.Parse(page[:section.SnapshotRecordSize]) != nil {
			continue // torn or corrupt copy; the other one may still be good
		}

		if !found || rec.SeqHead > best.SeqHead {
			best = rec
			found = true
		}
	}

	if !found {
		return section.SnapshotRecord{}, errs.ErrRecordMissing
	}

	return best, nil
}

// SaveSnapshot writes rec to the sector chosen by the parity of its head
// sequence (odd to A, even to B), so consecutive saves alternate targets and
// the previous snapshot survives a torn write.
func (s *Store) SaveSnapshot(rec section.SnapshotRecord) error {
	target := uint32(snapBOffset)
	if rec.SeqHead&1 == 1 {
		target = snapAOffset
	}

	return s.saveRecordPage(target, rec.Bytes())
}

// LoadHeadHint returns the head-hint record, or errs.ErrRecordMissing when
// the sector is blank or the record fails its CRC.
func (s *Store) LoadHeadHint() (section.HeadHintRecord, error) {
	page, blank, err := s.readRecordPage(hintOffset)
	if err != nil {
		return section.HeadHintRecord{}, err
	}
	if blank {
		return section.HeadHintRecord{}, errs.ErrRecordMissing
	}

	var rec section.HeadHintRecord
	if rec.Parse(page[:section.HeadHintRecordSize]) != nil {
		return section.HeadHintRecord{}, errs.ErrRecordMissing
	}

	return rec, nil
}

// SaveHeadHint writes the head-hint record to its dedicated sector.
func (s *Store) SaveHeadHint(addr, seq uint32) error {
	rec := section.HeadHintRecord{Addr: addr, Seq: seq}

	return s.saveRecordPage(hintOffset, rec.Bytes())
}
