package section

import (
	"encoding/binary"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
)

// SegmentFooter is the record written into the 16th page of a segment at
// rollover. A segment is finalized exactly when its footer is present; an
// unfinalized segment is reconstructed by scanning its data pages instead.
type SegmentFooter struct {
	Seqno      uint32 // byte offset 4-7, monotonic over device life
	TMin       uint32 // byte offset 8-11
	TMax       uint32 // byte offset 12-15
	BlockCount uint32 // byte offset 16-19, <= 15
	Bitmap     SeriesBitmap // byte offset 20-51
	CRC        uint32 // byte offset 52-55, CRC-32C of bytes 0..51
}

// PageBytes serializes the footer into a full 256-byte page image with the
// record at offset 0 and 0xFF beyond, ready for a single page program.
func (f *SegmentFooter) PageBytes() []byte {
	page := make([]byte, FooterPageSize)
	for i := range page {
		page[i] = 0xFF
	}

	binary.LittleEndian.PutUint32(page[ftrMagicOffset:], format.FooterMagic)
	binary.LittleEndian.PutUint32(page[ftrSeqnoOffset:], f.Seqno)
	binary.LittleEndian.PutUint32(page[ftrTMinOffset:], f.TMin)
	binary.LittleEndian.PutUint32(page[ftrTMaxOffset:], f.TMax)
	binary.LittleEndian.PutUint32(page[ftrBlockCountOffset:], f.BlockCount)
	copy(page[ftrBitmapOffset:ftrBitmapOffset+format.SeriesBitmapBytes], f.Bitmap[:])

	crc := crc32c.Sum(page[:FooterCRCBytes])
	binary.LittleEndian.PutUint32(page[ftrCRCOffset:], crc)

	return page
}

// Parse verifies magic and CRC, then fills f from a footer page image.
func (f *SegmentFooter) Parse(page []byte) error {
	if len(page) != FooterPageSize {
		return errs.ErrInvalidPageSize
	}

	if binary.LittleEndian.Uint32(page[ftrMagicOffset:]) != format.FooterMagic {
		return errs.ErrInvalidMagicNumber
	}

	stored := binary.LittleEndian.Uint32(page[ftrCRCOffset:])
	if crc32c.Sum(page[:FooterCRCBytes]) != stored {
		return errs.ErrRecordCRCMismatch
	}

	f.Seqno = binary.LittleEndian.Uint32(page[ftrSeqnoOffset:])
	f.TMin = binary.LittleEndian.Uint32(page[ftrTMinOffset:])
	f.TMax = binary.LittleEndian.Uint32(page[ftrTMaxOffset:])
	f.BlockCount = binary.LittleEndian.Uint32(page[ftrBlockCountOffset:])
	copy(f.Bitmap[:], page[ftrBitmapOffset:ftrBitmapOffset+format.SeriesBitmapBytes])
	f.CRC = stored

	return nil
}

// ParseSegmentFooter parses and verifies a footer from a 256-byte page.
func ParseSegmentFooter(page []byte) (SegmentFooter, error) {
	var f SegmentFooter
	if err := f.Parse(page); err != nil {
		return SegmentFooter{}, err
	}

	return f, nil
}
