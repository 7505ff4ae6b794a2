package section

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/format"
)

func TestBlockHeader_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		hdr  BlockHeader
	}{
		{
			name: "basic",
			hdr: BlockHeader{
				Series:     1,
				Count:      10,
				T0MS:       1000,
				DeltaWidth: format.Delta8,
				Bias:       0.5,
				Scale:      0.001,
				PayloadCRC: 0xDEADBEEF,
			},
		},
		{
			name: "wide deltas max series",
			hdr: BlockHeader{
				Series:     255,
				Count:      56,
				T0MS:       0xFFFFFFFE,
				DeltaWidth: format.Delta16,
				Bias:       -273.15,
				Scale:      1e-9,
				PayloadCRC: 1,
			},
		},
		{
			name: "single sample",
			hdr: BlockHeader{
				Series:     0,
				Count:      1,
				T0MS:       0,
				DeltaWidth: format.Delta8,
				Bias:       0,
				Scale:      1e-9,
				PayloadCRC: 0,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := tc.hdr.Bytes()
			require.Len(t, img, HeaderSize)

			parsed, err := ParseBlockHeader(img)
			require.NoError(t, err)

			// HeaderCRC is computed during Bytes; compare the rest.
			tc.hdr.HeaderCRC = parsed.HeaderCRC
			require.Equal(t, tc.hdr, parsed)

			// Re-serializing the parsed header reproduces the image.
			require.Equal(t, img, parsed.Bytes())
		})
	}
}

func TestBlockHeader_PadBytesAreFF(t *testing.T) {
	h := BlockHeader{Series: 7, Count: 3, DeltaWidth: format.Delta8, Scale: 1}
	img := h.Bytes()
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF}, img[13:16])
}

func TestBlockHeader_Parse_Invalid(t *testing.T) {
	valid := (&BlockHeader{Series: 2, Count: 4, DeltaWidth: format.Delta16, Scale: 1}).Bytes()

	t.Run("wrong size", func(t *testing.T) {
		var h BlockHeader
		require.ErrorIs(t, h.Parse(valid[:31]), errs.ErrInvalidHeaderSize)
	})

	t.Run("erased header", func(t *testing.T) {
		blank := make([]byte, HeaderSize)
		for i := range blank {
			blank[i] = 0xFF
		}
		var h BlockHeader
		require.ErrorIs(t, h.Parse(blank), errs.ErrInvalidMagicNumber)
	})

	t.Run("magic bit flip", func(t *testing.T) {
		img := append([]byte(nil), valid...)
		img[0] ^= 0x01
		var h BlockHeader
		require.ErrorIs(t, h.Parse(img), errs.ErrInvalidMagicNumber)
	})

	t.Run("body bit flip", func(t *testing.T) {
		img := append([]byte(nil), valid...)
		img[9] ^= 0x80
		var h BlockHeader
		require.ErrorIs(t, h.Parse(img), errs.ErrHeaderCRCMismatch)
	})

	t.Run("crc bit flip", func(t *testing.T) {
		img := append([]byte(nil), valid...)
		img[hdrCRCOffset] ^= 0x01
		var h BlockHeader
		require.ErrorIs(t, h.Parse(img), errs.ErrHeaderCRCMismatch)
	})

	t.Run("bad delta width", func(t *testing.T) {
		bad := BlockHeader{Series: 2, Count: 4, DeltaWidth: 12, Scale: 1}
		img := bad.Bytes()
		var h BlockHeader
		require.ErrorIs(t, h.Parse(img), errs.ErrInvalidDeltaWidth)
	})
}

func TestBlockHeader_MagicLayout(t *testing.T) {
	img := (&BlockHeader{DeltaWidth: format.Delta8}).Bytes()
	require.Equal(t, uint32(0x424C4B31), binary.LittleEndian.Uint32(img[0:4]))
	// 'BLK1' little-endian on the wire.
	require.Equal(t, byte('1'), img[0])
	require.Equal(t, byte('K'), img[1])
	require.Equal(t, byte('L'), img[2])
	require.Equal(t, byte('B'), img[3])
}
