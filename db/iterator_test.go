package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
)

func TestIterator_EmptyDatabase(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	handle := openTestDB(t, dev)

	it, err := handle.QueryBegin(1, 0, 1000)
	require.NoError(t, err)
	_, _, ok := it.Next()
	require.False(t, ok)
	it.End()

	_, _, err = handle.QueryLatest(1)
	require.ErrorIs(t, err, errs.ErrNoData)
}

func TestIterator_SeriesFilter(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	handle := openTestDB(t, dev)

	for i := 0; i < 50; i++ {
		require.NoError(t, handle.Write(1, uint32(i*10), 1.0))
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, handle.Write(2, uint32(i*10), 2.0))
	}
	require.NoError(t, handle.Flush())

	times, values := collectRange(t, handle, 2, 0, 10000)
	require.Len(t, times, 50)
	for _, v := range values {
		require.InDelta(t, 2.0, float64(v), 1e-4)
	}

	// A series never written yields nothing.
	times, _ = collectRange(t, handle, 9, 0, 10000)
	require.Empty(t, times)
}

func TestIterator_WrapAwareWindow(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	handle := openTestDB(t, dev)

	// 100 rows that cross the 32-bit millisecond wrap.
	start := uint32(0xFFFFFF00)
	for i := 0; i < 100; i++ {
		require.NoError(t, handle.Write(1, start+uint32(i*10), float32(i)))
	}
	require.NoError(t, handle.Flush())

	// A window that itself wraps: from shortly before the wrap to shortly
	// after it.
	t0 := uint32(0xFFFFFF80)
	t1 := uint32(0x00000100)
	times, _ := collectRange(t, handle, 1, t0, t1)
	require.NotEmpty(t, times)
	for _, ts := range times {
		require.True(t, format.InRange(ts, t0, t1), "ts 0x%X outside window", ts)
	}
	// Rows i=13..25 sit just before the wrap, i=26..51 just after it.
	require.Len(t, times, 39)
}

func TestIterator_OrderSurvivesRingWrap(t *testing.T) {
	// Small 8-slot ring so the head laps the ring.
	dev := flash.NewMemDevice(8*format.SegmentBytes + format.MetaReservedBytes)
	handle := openTestDB(t, dev)

	rows := 10 * format.DataPagesPerSegment * 74 // ten segments of data
	for i := 0; i < rows; i++ {
		require.NoError(t, handle.Write(1, uint32(i*10), float32(i%100)))
	}
	require.NoError(t, handle.Flush())

	times, _ := collectRange(t, handle, 1, 0, uint32(rows*10))
	require.NotEmpty(t, times)

	// The oldest segments were reclaimed by rotation, but what remains
	// comes out in insertion order even though the newest data sits at
	// lower physical addresses than older data.
	for i := 1; i < len(times); i++ {
		require.Greater(t, times[i], times[i-1])
	}

	// The newest row is always present.
	require.Equal(t, uint32((rows-1)*10), times[len(times)-1])
}

func TestQueryLatest_SkipsCorruptNewestBlock(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	handle := openTestDB(t, dev)

	for i := 0; i < 150; i++ {
		require.NoError(t, handle.Write(1, uint32(i*10), float32(i)))
	}
	require.NoError(t, handle.Flush()) // pages 0..2
	handle.Close()

	// Corrupt the payload of the newest block; latest must fall back to
	// the previous one.
	dev.Bytes()[2*format.PageBytes+3] &^= 0x80

	reopened := openTestDB(t, dev)
	ts, v, err := reopened.QueryLatest(1)
	require.NoError(t, err)
	require.Equal(t, uint32(147*10), ts)
	require.InDelta(t, 147.0, float64(v), 0.01)
	require.GreaterOrEqual(t, reopened.Info().CRCErrors, uint32(1))
}

func TestAll_RangeOverIterator(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	handle := openTestDB(t, dev)

	for i := 0; i < 20; i++ {
		require.NoError(t, handle.Write(1, uint32(i*10), float32(i)))
	}
	require.NoError(t, handle.Flush())

	var count int
	for ts, v := range handle.All(1, 50, 120) {
		require.True(t, format.InRange(ts, 50, 120))
		require.InDelta(t, float64(ts/10), float64(v), 0.01)
		count++
	}
	require.Equal(t, 8, count) // ts 50..120 step 10
}
