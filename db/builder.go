package db

import (
	"github.com/arloliu/stampdb/encoding"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
	"github.com/arloliu/stampdb/section"
)

// stagingSlots is the builder capacity: 74 u8-delta samples fill the
// payload budget (74*1 + 74*2 = 222 of 224 bytes), so no block ever stages
// more rows than this.
const stagingSlots = 74

// maxDelta is the largest gap the u16 delta lane can carry; a wider gap
// forces a block close.
const maxDelta = 65535

// builder accumulates samples for one series into an open block. All
// staging arrays are allocated once at open and reused per block.
type builder struct {
	series uint16
	t0     uint32
	lastTS uint32
	minV   float32
	maxV   float32
	width  format.DeltaWidth
	count  int

	deltas []uint32
	vals   []float32
	qvals  []int16
}

func newBuilder() builder {
	return builder{
		width:  format.Delta8,
		deltas: make([]uint32, stagingSlots),
		vals:   make([]float32, stagingSlots),
		qvals:  make([]int16, stagingSlots),
	}
}

// begin starts a fresh block at the pending sample.
func (b *builder) begin(series uint16, ts uint32, val float32) {
	b.series = series
	b.t0 = ts
	b.lastTS = ts
	b.minV = val
	b.maxV = val
	b.width = format.Delta8
	b.count = 0
}

// needsClose reports whether appending a sample with gap dt would break the
// block: a series switch, a gap the u16 lane cannot carry, or a projected
// payload past the 224-byte budget. The check runs before the append, so
// the block always closes before overflowing, never after.
func (b *builder) needsClose(series uint16, dt uint32) bool {
	if b.count == 0 {
		return false
	}
	if series != b.series {
		return true
	}
	if dt > maxDelta {
		return true
	}

	width := b.width
	if dt > 255 {
		width = format.Delta16
	}

	return encoding.PayloadSize(width, b.count+1) > format.PayloadBytes
}

// append stages one sample. The caller has already established that it
// fits.
func (b *builder) append(ts uint32, val float32, dt uint32) {
	if b.count == 0 {
		dt = 0
	}
	b.deltas[b.count] = dt
	b.vals[b.count] = val
	if val < b.minV {
		b.minV = val
	}
	if val > b.maxV {
		b.maxV = val
	}
	if dt > 255 {
		b.width = format.Delta16
	}
	b.count++
	b.lastTS = ts
}

// full reports whether every staging slot is used.
func (b *builder) full() bool {
	return b.count >= stagingSlots
}

// seal quantizes the staged values, selects the delta lane, and produces
// the header and payload ready for publishing. saturations reports how many
// values clipped to the int16 range.
func (b *builder) seal(payload []byte) (section.BlockHeader, int, error) {
	bias, scale := encoding.QuantParams(b.minV, b.maxV)

	saturations := 0
	for i := 0; i < b.count; i++ {
		q, saturated := encoding.Quantize(b.vals[i], bias, scale)
		if saturated {
			saturations++
		}
		b.qvals[i] = q
	}

	width := format.Delta8
	for i := 0; i < b.count; i++ {
		if b.deltas[i] > 255 {
			width = format.Delta16
			break
		}
	}

	if _, err := encoding.EncodePayload(payload, width, b.deltas[:b.count], b.qvals[:b.count]); err != nil {
		return section.BlockHeader{}, 0, err
	}

	hdr := section.BlockHeader{
		Series:     b.series,
		Count:      uint16(b.count),
		T0MS:       b.t0,
		DeltaWidth: width,
		Bias:       bias,
		Scale:      scale,
		PayloadCRC: crc32c.Sum(payload),
	}

	return hdr, saturations, nil
}
