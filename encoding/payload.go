// Package encoding implements the block payload codec and the Fixed16 value
// quantizer.
//
// A block payload is two contiguous little-endian lanes inside the 224-byte
// page budget: first the timestamp delta lane (one byte per delta when the
// lane width is u8, two when it is u16), then the quantized value lane (two
// bytes per value, int16 two's-complement). Bytes past the lanes stay 0xFF so
// the image programs cleanly onto erased NOR flash, and the payload CRC
// covers the full 224 bytes including that fill.
package encoding

import (
	"encoding/binary"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
)

// PayloadSize returns the number of payload bytes count samples occupy at
// the given lane width.
func PayloadSize(width format.DeltaWidth, count int) int {
	return count*width.Bytes() + count*2
}

// MaxCount returns the largest sample count that fits the payload budget at
// the given lane width: 74 for u8 deltas, 56 for u16.
func MaxCount(width format.DeltaWidth) int {
	return format.PayloadBytes / (width.Bytes() + 2)
}

// EncodePayload writes the delta and qval lanes into dst, which must be
// exactly 224 bytes, and fills the remainder with 0xFF. It returns the
// number of lane bytes written.
func EncodePayload(dst []byte, width format.DeltaWidth, deltas []uint32, qvals []int16) (int, error) {
	if len(dst) != format.PayloadBytes {
		return 0, errs.ErrInvalidPageSize
	}
	if !width.Valid() {
		return 0, errs.ErrInvalidDeltaWidth
	}

	count := len(deltas)
	used := PayloadSize(width, count)
	if len(qvals) != count || used > format.PayloadBytes {
		return 0, errs.ErrBlockTooLarge
	}

	p := 0
	if width == format.Delta8 {
		for _, d := range deltas {
			dst[p] = byte(d)
			p++
		}
	} else {
		for _, d := range deltas {
			binary.LittleEndian.PutUint16(dst[p:], uint16(d))
			p += 2
		}
	}
	for _, q := range qvals {
		binary.LittleEndian.PutUint16(dst[p:], uint16(q))
		p += 2
	}
	for i := p; i < format.PayloadBytes; i++ {
		dst[i] = 0xFF
	}

	return used, nil
}

// DecodePayload is the inverse of EncodePayload. The caller supplies count
// and width from the verified block header; deltas and qvals must each have
// room for count elements.
func DecodePayload(src []byte, width format.DeltaWidth, deltas []uint32, qvals []int16, count int) error {
	if len(src) != format.PayloadBytes {
		return errs.ErrInvalidPageSize
	}
	if !width.Valid() {
		return errs.ErrInvalidDeltaWidth
	}
	if PayloadSize(width, count) > format.PayloadBytes || len(deltas) < count || len(qvals) < count {
		return errs.ErrBlockTooLarge
	}

	p := 0
	if width == format.Delta8 {
		for i := 0; i < count; i++ {
			deltas[i] = uint32(src[p])
			p++
		}
	} else {
		for i := 0; i < count; i++ {
			deltas[i] = uint32(binary.LittleEndian.Uint16(src[p:]))
			p += 2
		}
	}
	for i := 0; i < count; i++ {
		qvals[i] = int16(binary.LittleEndian.Uint16(src[p:]))
		p += 2
	}

	return nil
}

// LastTimestamp folds the delta lane of an encoded payload into the final
// row timestamp without decoding the value lane. The ring uses it to keep
// segment summaries current while publishing, and the latest query uses it
// to reconstruct a single row.
func LastTimestamp(payload []byte, width format.DeltaWidth, t0 uint32, count int) uint32 {
	t := t0
	if width == format.Delta8 {
		for i := 0; i < count; i++ {
			t += uint32(payload[i])
		}
	} else {
		for i := 0; i < count; i++ {
			t += uint32(binary.LittleEndian.Uint16(payload[i*2:]))
		}
	}

	return t
}
