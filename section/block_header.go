package section

import (
	"encoding/binary"
	"math"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
)

// BlockHeader is the 32-byte record programmed at the tail of a data page.
// Its presence (valid magic + header CRC) is what publishes the page: the
// payload is programmed first with the header area left 0xFF, and the header
// second, so a torn write leaves the page unreadable rather than corrupt.
type BlockHeader struct {
	Series     uint16  // byte offset 4-5
	Count      uint16  // byte offset 6-7
	T0MS       uint32  // byte offset 8-11
	DeltaWidth format.DeltaWidth // byte offset 12
	Bias       float32 // byte offset 16-19
	Scale      float32 // byte offset 20-23
	PayloadCRC uint32  // byte offset 24-27
	HeaderCRC  uint32  // byte offset 28-31, CRC-32C of bytes 0..27
}

// Bytes serializes the header into a fresh 32-byte slice, computing the
// header CRC over the first 28 bytes. Unused bytes are 0xFF so the image can
// be programmed onto erased flash without clearing extra bits.
func (h *BlockHeader) Bytes() []byte {
	b := make([]byte, HeaderSize)
	for i := range b {
		b[i] = 0xFF
	}

	binary.LittleEndian.PutUint32(b[hdrMagicOffset:], format.BlockMagic)
	binary.LittleEndian.PutUint16(b[hdrSeriesOffset:], h.Series)
	binary.LittleEndian.PutUint16(b[hdrCountOffset:], h.Count)
	binary.LittleEndian.PutUint32(b[hdrT0Offset:], h.T0MS)
	b[hdrDeltaWidthOffset] = byte(h.DeltaWidth)
	binary.LittleEndian.PutUint32(b[hdrBiasOffset:], math.Float32bits(h.Bias))
	binary.LittleEndian.PutUint32(b[hdrScaleOffset:], math.Float32bits(h.Scale))
	binary.LittleEndian.PutUint32(b[hdrPayloadCRCOffset:], h.PayloadCRC)

	crc := crc32c.Sum(b[:HeaderCRCBytes])
	binary.LittleEndian.PutUint32(b[hdrCRCOffset:], crc)

	return b
}

// Parse verifies magic and header CRC, then fills h from data. It fails
// without inspecting the remaining fields when either check misses, so a
// torn header program (0xFF tail) or a bit flip is rejected in one step.
func (h *BlockHeader) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	if binary.LittleEndian.Uint32(data[hdrMagicOffset:]) != format.BlockMagic {
		return errs.ErrInvalidMagicNumber
	}

	stored := binary.LittleEndian.Uint32(data[hdrCRCOffset:])
	if crc32c.Sum(data[:HeaderCRCBytes]) != stored {
		return errs.ErrHeaderCRCMismatch
	}

	h.Series = binary.LittleEndian.Uint16(data[hdrSeriesOffset:])
	h.Count = binary.LittleEndian.Uint16(data[hdrCountOffset:])
	h.T0MS = binary.LittleEndian.Uint32(data[hdrT0Offset:])
	h.DeltaWidth = format.DeltaWidth(data[hdrDeltaWidthOffset])
	h.Bias = math.Float32frombits(binary.LittleEndian.Uint32(data[hdrBiasOffset:]))
	h.Scale = math.Float32frombits(binary.LittleEndian.Uint32(data[hdrScaleOffset:]))
	h.PayloadCRC = binary.LittleEndian.Uint32(data[hdrPayloadCRCOffset:])
	h.HeaderCRC = stored

	if !h.DeltaWidth.Valid() {
		return errs.ErrInvalidDeltaWidth
	}

	return nil
}

// ParseBlockHeader parses and verifies a block header from data.
func ParseBlockHeader(data []byte) (BlockHeader, error) {
	var h BlockHeader
	if err := h.Parse(data); err != nil {
		return BlockHeader{}, err
	}

	return h, nil
}
