package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/stampdb/errs"
)

func TestSnapshotRecord_RoundTrip(t *testing.T) {
	r := NewSnapshotRecord(2, 120, 58, 0x0003F100)
	require.Equal(t, uint32(1), r.Version)

	b := r.Bytes()
	require.Len(t, b, SnapshotRecordSize)

	var parsed SnapshotRecord
	require.NoError(t, parsed.Parse(b))
	r.CRC = parsed.CRC
	require.Equal(t, r, parsed)
}

func TestSnapshotRecord_Parse_Invalid(t *testing.T) {
	r := NewSnapshotRecord(0, 1, 1, 0)
	b := r.Bytes()

	t.Run("short", func(t *testing.T) {
		var p SnapshotRecord
		require.ErrorIs(t, p.Parse(b[:20]), errs.ErrInvalidRecordSize)
	})

	t.Run("bit flip", func(t *testing.T) {
		bad := append([]byte(nil), b...)
		bad[9] ^= 0x04
		var p SnapshotRecord
		require.ErrorIs(t, p.Parse(bad), errs.ErrRecordCRCMismatch)
	})
}

func TestHeadHintRecord_RoundTrip(t *testing.T) {
	r := HeadHintRecord{Addr: 0x00012300, Seq: 99}
	b := r.Bytes()
	require.Len(t, b, HeadHintRecordSize)

	var parsed HeadHintRecord
	require.NoError(t, parsed.Parse(b))
	r.CRC = parsed.CRC
	require.Equal(t, r, parsed)
}

func TestHeadHintRecord_Parse_Invalid(t *testing.T) {
	b := (&HeadHintRecord{Addr: 256, Seq: 2}).Bytes()
	bad := append([]byte(nil), b...)
	bad[0] ^= 0xFF
	var p HeadHintRecord
	require.ErrorIs(t, p.Parse(bad), errs.ErrRecordCRCMismatch)
}
