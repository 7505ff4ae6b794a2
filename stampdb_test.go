package stampdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
)

func TestOpenWriteQuery(t *testing.T) {
	dev := flash.NewMemDevice(16*format.SegmentBytes + format.MetaReservedBytes)

	handle, err := Open(dev)
	require.NoError(t, err)
	defer handle.Close()

	for i := 0; i < 100; i++ {
		require.NoError(t, handle.Write(1, uint32(i*10), float32(i)))
	}
	require.NoError(t, handle.Flush())

	var rows int
	for ts, v := range handle.All(1, 0, 1000) {
		require.InDelta(t, float64(ts/10), float64(v), 0.01)
		rows++
	}
	require.Equal(t, 100, rows)

	ts, _, err := handle.QueryLatest(1)
	require.NoError(t, err)
	require.Equal(t, uint32(990), ts)
}

func TestSeriesID(t *testing.T) {
	a := SeriesID("engine.rpm")
	b := SeriesID("engine.rpm")
	require.Equal(t, a, b)
	require.Less(t, int(a), format.MaxSeries)

	// Distinct names spread over the slot space; exact values are free to
	// differ across hash versions, identity must not.
	c := SeriesID("cabin.temperature")
	require.Less(t, int(c), format.MaxSeries)
}
