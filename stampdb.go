// Package stampdb provides an embedded, append-only time-series log for
// QSPI NOR flash (4 KiB erase, 256 B program, 1→0 bit programming).
//
// StampDB accepts (series, timestamp, value) samples from a single
// producer, packs them into CRC-guarded 256-byte pages organized as a
// circular log of 4 KiB segments, and serves range and latest queries with
// constant working memory. At most the last uncommitted block is lost on
// abrupt power loss.
//
// # Core Features
//
//   - Header-last commit: a page's payload is programmed before its header,
//     so NOR 1→0 semantics make block publication atomic under power cuts
//   - Fixed16 value quantization with per-block bias/scale (error ≤ scale/2)
//   - u8/u16 timestamp delta lanes chosen per block
//   - Zone-map pruned, wrap-aware range queries in constant RAM
//   - A/B metadata snapshots plus a head hint for bounded reopen time
//   - Erase-quota garbage collection (at most 2 segment erases per second)
//
// # Basic Usage
//
// Opening a database on the host flash simulator and writing samples:
//
//	dev, _ := flash.OpenFileDevice("flash.bin", 0)
//	handle, err := stampdb.Open(dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer handle.Close()
//
//	for i := 0; i < 100; i++ {
//	    _ = handle.Write(1, uint32(i*10), float32(i))
//	}
//	_ = handle.Flush()
//
// Querying a time range:
//
//	for ts, v := range handle.All(1, 100, 900) {
//	    fmt.Printf("ts=%d val=%f\n", ts, v)
//	}
//
// # Concurrency
//
// The core is strictly single-threaded: one caller owns the handle and
// issues write, flush, query, and snapshot calls in sequence. Embeddings
// that split application logic from storage I/O must serialize calls
// through their own queue; from the database's perspective that collapses
// back to a single caller.
//
// # Package Structure
//
// This package provides thin, documented wrappers around the db package.
// For the individual layers, see db (facade, builder, iterator), ring
// (segment ring, GC, recovery), section (on-flash records), encoding
// (payload codec, quantizer), meta (A/B snapshots), and flash (device
// capability and simulators).
package stampdb

import (
	"github.com/arloliu/stampdb/db"
	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
	"github.com/arloliu/stampdb/internal/hash"
)

// DB is one open database instance; see the db package for methods.
type DB = db.DB

// Stats is the counter snapshot returned by DB.Info.
type Stats = db.Stats

// Iterator streams rows of one series; see DB.QueryBegin.
type Iterator = db.Iterator

// Option configures Open.
type Option = db.Option

// Re-exported options. See the db package for details.
var (
	WithWorkspaceBytes   = db.WithWorkspaceBytes
	WithReadBatchRows    = db.WithReadBatchRows
	WithCommitIntervalMS = db.WithCommitIntervalMS
	WithNonBlockingGC    = db.WithNonBlockingGC
	WithNow              = db.WithNow
)

// Open mounts a database on dev, runs recovery, and returns a handle ready
// for writes.
//
// All RAM the instance will ever use is allocated during Open; the budget
// set by WithWorkspaceBytes is checked against the device geometry and Open
// fails with errs.ErrWorkspaceTooSmall when it cannot hold the zone map and
// staging arrays. Recovery cost is bounded by the footer sweep plus a page
// probe of the segments written since the last snapshot.
//
// Parameters:
//   - dev: The flash device. Its whole address space belongs to the
//     database for the lifetime of the handle.
//   - opts: Optional configuration (see db.Option).
//
// Returns:
//   - *DB: The open handle.
//   - error: Device too small, workspace too small, or a flash I/O failure
//     during recovery.
//
// Example:
//
//	dev := flash.NewMemDevice(1 << 20)
//	handle, err := stampdb.Open(dev, stampdb.WithNonBlockingGC())
func Open(dev flash.Device, opts ...Option) (*DB, error) {
	return db.Open(dev, opts...)
}

// SeriesID maps a series name to a dense identifier in 0..255 by folding
// its xxHash64. Embeddings with a fixed schema should assign identifiers
// explicitly; SeriesID is for dynamic callers (CLI, bridges) that address
// series by name.
//
// The fold keeps the full 64-bit avalanche, so distinct names spread
// uniformly over the 256 slots; collisions merge series and are acceptable
// only for exploratory use.
func SeriesID(name string) uint16 {
	h := hash.ID(name)

	return uint16((h ^ h>>8 ^ h>>16 ^ h>>24 ^ h>>32 ^ h>>40 ^ h>>48 ^ h>>56) & (format.MaxSeries - 1))
}
