package section

import "github.com/arloliu/stampdb/format"

// SeriesBitmap is a 256-bit presence bitmap, one bit per series identifier.
// The zero value is an empty bitmap.
type SeriesBitmap [format.SeriesBitmapBytes]byte

// Set marks series as present.
func (b *SeriesBitmap) Set(series uint16) {
	b[series>>3] |= 1 << (series & 7)
}

// Has reports whether series is present.
func (b *SeriesBitmap) Has(series uint16) bool {
	return b[series>>3]&(1<<(series&7)) != 0
}

// Clear resets the bitmap to empty.
func (b *SeriesBitmap) Clear() {
	*b = SeriesBitmap{}
}

// Or merges other into b.
func (b *SeriesBitmap) Or(other *SeriesBitmap) {
	for i := range b {
		b[i] |= other[i]
	}
}

// Empty reports whether no series bit is set.
func (b *SeriesBitmap) Empty() bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}

	return true
}
