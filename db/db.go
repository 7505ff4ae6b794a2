// Package db implements the stampdb storage core: the single-writer facade
// over the block builder, the segment ring, the recovery scanner, and the
// metadata store.
//
// A DB is strictly single-threaded. One caller owns it and issues write,
// flush, query, and snapshot calls in sequence; embeddings that split
// application logic from storage I/O must linearize calls through their own
// queue before reaching the DB.
package db

import (
	"fmt"

	"github.com/arloliu/stampdb/errs"
	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/options"
	"github.com/arloliu/stampdb/meta"
	"github.com/arloliu/stampdb/ring"
)

// epochWrapThreshold is the backward timestamp jump that signals a 32-bit
// wrap rather than out-of-order input: half the value range.
const epochWrapThreshold = 0x80000000

// perSummaryBytes is the workspace cost of one zone-map entry, used by the
// open-time workspace check.
const perSummaryBytes = 88

// Stats is the lightweight counter snapshot returned by Info.
type Stats struct {
	SegSeqHead          uint32 // current head segment sequence
	SegSeqTail          uint32 // oldest live segment sequence
	BlocksWritten       uint32 // blocks committed since open
	CRCErrors           uint32 // payload CRC misses observed by queries
	GCWarnEvents        uint32 // entries into the <10% free watermark
	GCBusyEvents        uint32 // entries into <5% free or quota-busy
	RecoveryTruncations uint32 // torn tails discarded at open
	QuantSaturations    uint32 // values clipped to the int16 range
	EpochID             uint32 // timestamp wrap epochs observed
}

// DB is one open stampdb instance. Not safe for concurrent use.
type DB struct {
	dev  flash.Device
	meta *meta.Store
	ring *ring.Ring
	bld  builder

	now              func() uint64
	nonBlockingGC    bool
	readBatchRows    uint32
	commitIntervalMS uint32
	blockOpenedMS    uint64

	epochID        uint32
	lastTSObserved uint32
	hasObserved    bool

	crcErrors        uint32
	quantSaturations uint32

	payloadBuf []byte // reused per publish
	closed     bool
}

// Open mounts the database on dev, runs recovery, and returns a handle
// ready for writes. All RAM the instance will ever use is allocated here;
// the workspace budget (WithWorkspaceBytes) is checked against the device
// geometry and Open fails with errs.ErrWorkspaceTooSmall when it cannot
// hold the zone map and staging arrays.
func Open(dev flash.Device, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	size := dev.SizeBytes()
	if size%flash.EraseBytes != 0 || size < format.MetaReservedBytes+format.SegmentBytes {
		return nil, errs.ErrDeviceTooSmall
	}

	segCount := (size - format.MetaReservedBytes) / format.SegmentBytes
	required := uint32(1024) + segCount*perSummaryBytes + stagingSlots*(4+4+2)
	if required > cfg.workspaceBytes {
		return nil, fmt.Errorf("db: need %d workspace bytes for %d segments: %w",
			required, segCount, errs.ErrWorkspaceTooSmall)
	}

	store, err := meta.NewStore(dev)
	if err != nil {
		return nil, err
	}

	rg, err := ring.New(dev, store, ring.Config{Now: cfg.now})
	if err != nil {
		return nil, err
	}

	epochID, err := rg.Recover()
	if err != nil {
		return nil, fmt.Errorf("db: recovery failed: %w", err)
	}

	return &DB{
		dev:              dev,
		meta:             store,
		ring:             rg,
		bld:              newBuilder(),
		now:              cfg.now,
		nonBlockingGC:    cfg.nonBlockingGC,
		readBatchRows:    cfg.readBatchRows,
		commitIntervalMS: cfg.commitIntervalMS,
		epochID:          epochID,
		payloadBuf:       make([]byte, format.PayloadBytes),
	}, nil
}

// Close invalidates the handle. An open block that was never flushed is
// discarded, matching the durability contract: a sample is durable only
// once its block's header program has returned.
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.closed = true
}

// Write appends one sample. Samples arrive in insertion order; a series
// switch or a full payload closes the open block and publishes it. Write
// may block for GC reclaim (bounded by one quota window) and for the flash
// programs of a closing block.
func (db *DB) Write(series uint16, tsMS uint32, value float32) error {
	if db == nil || db.closed {
		return errs.ErrInvalidHandle
	}
	if series >= format.MaxSeries {
		return errs.ErrInvalidSeries
	}

	if err := db.ring.ReclaimIfNeeded(db.nonBlockingGC); err != nil {
		return err
	}

	if db.hasObserved && tsMS < db.lastTSObserved && db.lastTSObserved-tsMS > epochWrapThreshold {
		db.epochID++
	}
	db.lastTSObserved = tsMS
	db.hasObserved = true

	if db.commitIntervalMS > 0 && db.bld.count > 0 &&
		db.now()-db.blockOpenedMS >= uint64(db.commitIntervalMS) {
		if err := db.closeBlock(); err != nil {
			return err
		}
	}

	if err := db.push(series, tsMS, value); err != nil {
		return err
	}

	if db.bld.full() {
		return db.closeBlock()
	}

	return nil
}

// push stages one sample, closing the open block first when it would not
// fit.
func (db *DB) push(series uint16, ts uint32, val float32) error {
	b := &db.bld

	var dt uint32
	if b.count > 0 {
		dt = ts - b.lastTS
	}

	if b.needsClose(series, dt) {
		if err := db.closeBlock(); err != nil {
			return err
		}
	}

	if b.count == 0 {
		b.begin(series, ts, val)
		db.blockOpenedMS = db.now()
		dt = 0
	}

	b.append(ts, val, dt)

	return nil
}

// closeBlock seals and publishes the open block, if any.
func (db *DB) closeBlock() error {
	if db.bld.count == 0 {
		return nil
	}

	hdr, saturations, err := db.bld.seal(db.payloadBuf)
	if err != nil {
		return err
	}
	db.quantSaturations += uint32(saturations)

	if err := db.ring.Publish(&hdr, db.payloadBuf); err != nil {
		return err
	}
	db.bld.count = 0

	return nil
}

// Flush force-publishes the open block. A no-op when nothing is staged.
func (db *DB) Flush() error {
	if db == nil || db.closed {
		return errs.ErrInvalidHandle
	}

	return db.closeBlock()
}

// SnapshotSave persists the ring head, tail, and epoch to the A/B metadata
// sectors, bounding the next open's recovery work.
func (db *DB) SnapshotSave() error {
	if db == nil || db.closed {
		return errs.ErrInvalidHandle
	}

	return db.ring.SaveSnapshot(db.epochID)
}

// Info returns the counter snapshot.
func (db *DB) Info() Stats {
	if db == nil {
		return Stats{}
	}

	return Stats{
		SegSeqHead:          db.ring.Head().Seqno,
		SegSeqTail:          db.ring.TailSeqno(),
		BlocksWritten:       db.ring.BlocksWritten(),
		CRCErrors:           db.crcErrors,
		GCWarnEvents:        db.ring.GCWarnEvents(),
		GCBusyEvents:        db.ring.GCBusyEvents(),
		RecoveryTruncations: db.ring.RecoveryTruncations(),
		QuantSaturations:    db.quantSaturations,
		EpochID:             db.epochID,
	}
}

// ReadBatchRows returns the advisory iterator batch size recorded at open.
func (db *DB) ReadBatchRows() uint32 {
	return db.readBatchRows
}
