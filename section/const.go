package section

import "github.com/arloliu/stampdb/format"

// Byte offsets inside the 32-byte block header.
const (
	HeaderSize = format.HeaderBytes

	hdrMagicOffset      = 0  // u32 magic 'BLK1'
	hdrSeriesOffset     = 4  // u16 series
	hdrCountOffset      = 6  // u16 sample count
	hdrT0Offset         = 8  // u32 first timestamp (ms)
	hdrDeltaWidthOffset = 12 // u8 dt_bits, 8 or 16
	hdrPadOffset        = 13 // 3 bytes 0xFF
	hdrBiasOffset       = 16 // float32 bias
	hdrScaleOffset      = 20 // float32 scale
	hdrPayloadCRCOffset = 24 // u32 CRC-32C of the full 224-byte payload
	hdrCRCOffset        = 28 // u32 CRC-32C of header bytes 0..27

	// HeaderCRCBytes is the prefix of the header covered by the header CRC.
	HeaderCRCBytes = 28
)

// Byte offsets inside the 256-byte footer page.
const (
	FooterPageSize = format.PageBytes

	ftrMagicOffset      = 0  // u32 magic 'SFG1'
	ftrSeqnoOffset      = 4  // u32 segment sequence number
	ftrTMinOffset       = 8  // u32 earliest block start (ms)
	ftrTMaxOffset       = 12 // u32 latest reconstructed timestamp (ms)
	ftrBlockCountOffset = 16 // u32 committed block count (<=15)
	ftrBitmapOffset     = 20 // 32-byte series presence bitmap
	ftrCRCOffset        = 52 // u32 CRC-32C of footer bytes 0..51

	// FooterCRCBytes is the prefix of the footer covered by the footer CRC.
	FooterCRCBytes = ftrCRCOffset
	// FooterRecordSize is the used portion of the footer page; the rest of
	// the page stays 0xFF.
	FooterRecordSize = 56
)

// Snapshot record layout (first bytes of a metadata sector page).
const (
	SnapshotRecordSize = 24

	snapVersionOffset = 0  // u32 layout version, currently 1
	snapEpochOffset   = 4  // u32 epoch counter for timestamp wrap
	snapSeqHeadOffset = 8  // u32 ring head sequence
	snapSeqTailOffset = 12 // u32 ring tail sequence
	snapHeadAddrOffset = 16 // u32 absolute address of next free page
	snapCRCOffset     = 20 // u32 CRC-32C of record bytes 0..19

	SnapshotCRCBytes = snapCRCOffset
)

// Head-hint record layout.
const (
	HeadHintRecordSize = 12

	hintAddrOffset = 0 // u32 absolute head address
	hintSeqOffset  = 4 // u32 head segment sequence
	hintCRCOffset  = 8 // u32 CRC-32C of record bytes 0..7

	HeadHintCRCBytes = hintCRCOffset
)
