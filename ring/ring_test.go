package ring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/stampdb/encoding"
	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/crc32c"
	"github.com/arloliu/stampdb/meta"
	"github.com/arloliu/stampdb/section"
)

// testDeviceSize yields an 8-slot ring plus the 32 KiB metadata region.
const testDeviceSize = 8*format.SegmentBytes + format.MetaReservedBytes

type fakeClock struct {
	ms uint64
	// step advances the clock on every read so blocking GC waits terminate.
	step uint64
}

func (c *fakeClock) now() uint64 {
	c.ms += c.step
	return c.ms
}

func newTestRing(t *testing.T, dev *flash.MemDevice, clk *fakeClock) *Ring {
	t.Helper()
	store, err := meta.NewStore(dev)
	require.NoError(t, err)
	r, err := New(dev, store, Config{Now: clk.now})
	require.NoError(t, err)

	return r
}

func openTestRing(t *testing.T, dev *flash.MemDevice, clk *fakeClock) (*Ring, uint32) {
	t.Helper()
	r := newTestRing(t, dev, clk)
	epoch, err := r.Recover()
	require.NoError(t, err)

	return r, epoch
}

// makeBlock builds a publishable header+payload pair.
func makeBlock(t *testing.T, series uint16, t0 uint32, deltas []uint32, qvals []int16) (section.BlockHeader, []byte) {
	t.Helper()
	width := format.Delta8
	for _, d := range deltas {
		if d > 255 {
			width = format.Delta16
		}
	}

	payload := make([]byte, format.PayloadBytes)
	_, err := encoding.EncodePayload(payload, width, deltas, qvals)
	require.NoError(t, err)

	hdr := section.BlockHeader{
		Series:     series,
		Count:      uint16(len(deltas)),
		T0MS:       t0,
		DeltaWidth: width,
		Bias:       0,
		Scale:      1,
		PayloadCRC: crc32c.Sum(payload),
	}

	return hdr, payload
}

func publishN(t *testing.T, r *Ring, series uint16, start uint32, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		t0 := start + uint32(i)*100
		hdr, payload := makeBlock(t, series, t0, []uint32{0, 10, 10}, []int16{1, 2, 3})
		require.NoError(t, r.Publish(&hdr, payload))
	}
}

func TestPublish_HeaderLastPageImage(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	r, _ := openTestRing(t, dev, &fakeClock{})

	hdr, payload := makeBlock(t, 3, 1000, []uint32{0, 5, 7}, []int16{10, -10, 20})
	require.NoError(t, r.Publish(&hdr, payload))

	// The page carries the payload followed by a verifiable header.
	got, gotPayload, err := r.readBlock(0)
	require.NoError(t, err)
	require.Equal(t, hdr.Series, got.Series)
	require.Equal(t, hdr.Count, got.Count)
	require.Equal(t, hdr.T0MS, got.T0MS)
	require.Equal(t, payload, gotPayload)

	head := r.Head()
	require.Equal(t, uint32(format.PageBytes), head.Addr)
	require.Equal(t, uint32(1), head.PageIndex)
	require.Equal(t, uint32(1), r.BlocksWritten())

	sm := r.Summaries()[0]
	require.True(t, sm.Valid)
	require.Equal(t, uint32(1), sm.BlockCount)
	require.Equal(t, uint32(1000), sm.TMin)
	require.Equal(t, uint32(1012), sm.TMax)
	require.True(t, sm.Bitmap.Has(3))
}

func TestPublish_RotateSealsFooterAndErasesNext(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	r, _ := openTestRing(t, dev, &fakeClock{})

	publishN(t, r, 5, 0, format.DataPagesPerSegment)

	// Head moved to the second slot with a bumped sequence.
	head := r.Head()
	require.Equal(t, uint32(format.SegmentBytes), head.Addr)
	require.Equal(t, uint32(0), head.PageIndex)
	require.Equal(t, uint32(2), head.Seqno)

	footer, err := r.readFooter(0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), footer.Seqno)
	require.Equal(t, uint32(format.DataPagesPerSegment), footer.BlockCount)
	require.Equal(t, uint32(0), footer.TMin)
	require.True(t, footer.Bitmap.Has(5))
	require.False(t, footer.Bitmap.Has(4))

	// The new slot's summary starts empty but live.
	sm := r.Summaries()[1]
	require.True(t, sm.Valid)
	require.Equal(t, uint32(2), sm.Seqno)
	require.Equal(t, uint32(0), sm.BlockCount)
}

func TestPublish_WrapsAroundRing(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	clk := &fakeClock{step: 600} // keep the GC quota window rolling
	r, _ := openTestRing(t, dev, clk)

	// Fill all eight slots and one more; the head must wrap to slot 0 with
	// a sequence that keeps growing.
	for seg := 0; seg < 9; seg++ {
		require.NoError(t, r.ReclaimIfNeeded(false))
		publishN(t, r, 1, uint32(seg)*100000, format.DataPagesPerSegment)
	}

	head := r.Head()
	require.Equal(t, uint32(10), head.Seqno)
	require.Equal(t, uint32(format.SegmentBytes), head.Addr) // wrapped into slot 1
}

func TestGC_Watermarks(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	clk := &fakeClock{step: 1}
	r, _ := openTestRing(t, dev, clk)

	// All eight slots hold data: free = 0 < 10%.
	for i := range r.Summaries() {
		sm := &r.Summaries()[i]
		sm.Valid = true
		sm.Seqno = uint32(i + 1)
		sm.BlockCount = 1
	}

	require.NoError(t, r.ReclaimIfNeeded(false))
	require.Equal(t, uint32(1), r.GCWarnEvents())
	require.Equal(t, uint32(1), r.GCBusyEvents())

	// The oldest slot was erased and its summary zeroed.
	require.Equal(t, uint32(0), r.Summaries()[0].BlockCount)
	require.Equal(t, uint32(2), r.TailSeqno())
}

func TestGC_NoopWhilePlentyFree(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	r, _ := openTestRing(t, dev, &fakeClock{})

	require.NoError(t, r.ReclaimIfNeeded(false))
	require.Equal(t, uint32(0), r.GCWarnEvents())
	require.Equal(t, uint32(0), r.GCBusyEvents())
}

func TestGC_QuotaNonBlocking(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	clk := &fakeClock{step: 1} // ~1 ms per read; the window never rolls mid-test
	r, _ := openTestRing(t, dev, clk)

	fill := func() {
		for i := range r.Summaries() {
			sm := &r.Summaries()[i]
			sm.Valid = true
			sm.Seqno = uint32(i + 100)
			sm.BlockCount = 1
		}
	}

	fill()
	require.NoError(t, r.ReclaimIfNeeded(true))
	fill()
	require.NoError(t, r.ReclaimIfNeeded(true))
	fill()
	require.ErrorIs(t, r.ReclaimIfNeeded(true), errs.ErrBusy)
	require.GreaterOrEqual(t, r.GCBusyEvents(), uint32(1))
}

func TestGC_QuotaBlocksUntilWindowRolls(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	clk := &fakeClock{step: 100} // each clock read advances 100 ms
	r, _ := openTestRing(t, dev, clk)

	fill := func() {
		for i := range r.Summaries() {
			sm := &r.Summaries()[i]
			sm.Valid = true
			sm.Seqno = uint32(i + 100)
			sm.BlockCount = 1
		}
	}

	for i := 0; i < 5; i++ {
		fill()
		require.NoError(t, r.ReclaimIfNeeded(false))
	}
}

func TestSaveSnapshot_TailIsOldestLiveSequence(t *testing.T) {
	dev := flash.NewMemDevice(testDeviceSize)
	clk := &fakeClock{}
	r, _ := openTestRing(t, dev, clk)

	publishN(t, r, 2, 1000, 3)
	require.NoError(t, r.SaveSnapshot(7))

	store, err := meta.NewStore(dev)
	require.NoError(t, err)
	snap, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.Equal(t, uint32(7), snap.EpochID)
	require.Equal(t, uint32(1), snap.SeqHead)
	require.Equal(t, uint32(1), snap.SeqTail)
	require.Equal(t, r.Head().Addr, snap.HeadAddr)
}
