// Package errs defines the sentinel errors shared by all stampdb packages.
//
// Callers should compare with errors.Is; packages wrap these sentinels with
// additional context where it helps diagnosis.
package errs

import "errors"

var (
	// ErrInvalidSeries is returned when a series identifier is outside 0..255.
	ErrInvalidSeries = errors.New("series out of range")
	// ErrInvalidHandle is returned when a nil or closed handle is used.
	ErrInvalidHandle = errors.New("invalid database handle")
	// ErrBusy is returned by Write in non-blocking mode when the GC erase
	// quota for the current window is exhausted.
	ErrBusy = errors.New("gc erase quota exhausted")
	// ErrWorkspaceTooSmall is returned at open when the configured workspace
	// budget cannot hold the control block, summaries, and staging arrays.
	ErrWorkspaceTooSmall = errors.New("workspace too small")

	// ErrInvalidMagicNumber is returned when a record magic does not match.
	ErrInvalidMagicNumber = errors.New("invalid magic number")
	// ErrHeaderCRCMismatch is returned when a block header fails its CRC.
	ErrHeaderCRCMismatch = errors.New("header crc mismatch")
	// ErrPayloadCRCMismatch is returned when a page payload fails its CRC.
	ErrPayloadCRCMismatch = errors.New("payload crc mismatch")
	// ErrRecordCRCMismatch is returned when a footer, snapshot, or head-hint
	// record fails its CRC.
	ErrRecordCRCMismatch = errors.New("record crc mismatch")

	// ErrInvalidHeaderSize is returned when a header buffer is not 32 bytes.
	ErrInvalidHeaderSize = errors.New("invalid header size")
	// ErrInvalidPageSize is returned when a page buffer is not 256 bytes.
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidRecordSize is returned when a metadata record buffer has the
	// wrong length.
	ErrInvalidRecordSize = errors.New("invalid record size")
	// ErrInvalidDeltaWidth is returned when dt_bits is neither 8 nor 16.
	ErrInvalidDeltaWidth = errors.New("invalid delta width")
	// ErrBlockTooLarge is returned when a block does not fit the 224 byte
	// payload budget.
	ErrBlockTooLarge = errors.New("block exceeds payload budget")

	// ErrRecordMissing is returned when a snapshot or head-hint sector holds
	// no record (erased or never written).
	ErrRecordMissing = errors.New("metadata record missing")
	// ErrNoData is returned by latest queries when a series has no rows.
	ErrNoData = errors.New("no data for series")

	// ErrUnalignedAddress is returned by flash devices on misaligned erase or
	// program addresses.
	ErrUnalignedAddress = errors.New("unaligned flash address")
	// ErrOutOfBounds is returned by flash devices when an access runs past
	// the end of the device.
	ErrOutOfBounds = errors.New("flash access out of bounds")
	// ErrDeviceTooSmall is returned at open when the flash device cannot hold
	// the metadata region plus at least one segment.
	ErrDeviceTooSmall = errors.New("flash device too small")
)
