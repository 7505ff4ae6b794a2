package section

import (
	"encoding/binary"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
)

// SnapshotRecord captures the ring head, tail, and epoch so reopen can skip
// the full footer sweep. Two copies rotate through the A and B metadata
// sectors; the record CRC lets a reader reject a torn save.
type SnapshotRecord struct {
	Version  uint32 // byte offset 0-3, format.LayoutVersion
	EpochID  uint32 // byte offset 4-7
	SeqHead  uint32 // byte offset 8-11
	SeqTail  uint32 // byte offset 12-15
	HeadAddr uint32 // byte offset 16-19
	CRC      uint32 // byte offset 20-23, CRC-32C of bytes 0..19
}

// NewSnapshotRecord returns a record at the current layout version.
func NewSnapshotRecord(epochID, seqHead, seqTail, headAddr uint32) SnapshotRecord {
	return SnapshotRecord{
		Version:  format.LayoutVersion,
		EpochID:  epochID,
		SeqHead:  seqHead,
		SeqTail:  seqTail,
		HeadAddr: headAddr,
	}
}

// Bytes serializes the record with its CRC into a fresh 24-byte slice.
func (r *SnapshotRecord) Bytes() []byte {
	b := make([]byte, SnapshotRecordSize)
	binary.LittleEndian.PutUint32(b[snapVersionOffset:], r.Version)
	binary.LittleEndian.PutUint32(b[snapEpochOffset:], r.EpochID)
	binary.LittleEndian.PutUint32(b[snapSeqHeadOffset:], r.SeqHead)
	binary.LittleEndian.PutUint32(b[snapSeqTailOffset:], r.SeqTail)
	binary.LittleEndian.PutUint32(b[snapHeadAddrOffset:], r.HeadAddr)
	binary.LittleEndian.PutUint32(b[snapCRCOffset:], crc32c.Sum(b[:SnapshotCRCBytes]))

	return b
}

// Parse verifies the CRC and fills r from data.
func (r *SnapshotRecord) Parse(data []byte) error {
	if len(data) < SnapshotRecordSize {
		return errs.ErrInvalidRecordSize
	}

	stored := binary.LittleEndian.Uint32(data[snapCRCOffset:])
	if crc32c.Sum(data[:SnapshotCRCBytes]) != stored {
		return errs.ErrRecordCRCMismatch
	}

	r.Version = binary.LittleEndian.Uint32(data[snapVersionOffset:])
	r.EpochID = binary.LittleEndian.Uint32(data[snapEpochOffset:])
	r.SeqHead = binary.LittleEndian.Uint32(data[snapSeqHeadOffset:])
	r.SeqTail = binary.LittleEndian.Uint32(data[snapSeqTailOffset:])
	r.HeadAddr = binary.LittleEndian.Uint32(data[snapHeadAddrOffset:])
	r.CRC = stored

	return nil
}
