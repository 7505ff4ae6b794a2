package section

import (
	"encoding/binary"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/internal/crc32c"
)

// HeadHintRecord is an advisory pointer to the ring head, saved on a cadence
// so reopen can jump close to the true head without a snapshot. A stale or
// torn hint is harmless: the tail probe re-derives the exact page.
type HeadHintRecord struct {
	Addr uint32 // byte offset 0-3
	Seq  uint32 // byte offset 4-7
	CRC  uint32 // byte offset 8-11, CRC-32C of bytes 0..7
}

// Bytes serializes the record with its CRC into a fresh 12-byte slice.
func (r *HeadHintRecord) Bytes() []byte {
	b := make([]byte, HeadHintRecordSize)
	binary.LittleEndian.PutUint32(b[hintAddrOffset:], r.Addr)
	binary.LittleEndian.PutUint32(b[hintSeqOffset:], r.Seq)
	binary.LittleEndian.PutUint32(b[hintCRCOffset:], crc32c.Sum(b[:HeadHintCRCBytes]))

	return b
}

// Parse verifies the CRC and fills r from data.
func (r *HeadHintRecord) Parse(data []byte) error {
	if len(data) < HeadHintRecordSize {
		return errs.ErrInvalidRecordSize
	}

	stored := binary.LittleEndian.Uint32(data[hintCRCOffset:])
	if crc32c.Sum(data[:HeadHintCRCBytes]) != stored {
		return errs.ErrRecordCRCMismatch
	}

	r.Addr = binary.LittleEndian.Uint32(data[hintAddrOffset:])
	r.Seq = binary.LittleEndian.Uint32(data[hintSeqOffset:])
	r.CRC = stored

	return nil
}
