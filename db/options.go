package db

import (
	"time"

	"github.com/arloliu/stampdb/internal/options"
)

// Defaults applied by Open when the corresponding option is absent.
const (
	// DefaultWorkspaceBytes bounds the RAM the database may allocate at
	// open: control block, zone map, and staging arrays. 512 KiB covers a
	// 16 MiB device with room to spare.
	DefaultWorkspaceBytes = 512 * 1024
	// DefaultReadBatchRows is the advisory iterator batch size.
	DefaultReadBatchRows = 256
)

type config struct {
	workspaceBytes   uint32
	readBatchRows    uint32
	commitIntervalMS uint32
	nonBlockingGC    bool
	now              func() uint64
}

// Option configures Open.
type Option = options.Option[*config]

func defaultConfig() *config {
	start := time.Now()

	return &config{
		workspaceBytes: DefaultWorkspaceBytes,
		readBatchRows:  DefaultReadBatchRows,
		now: func() uint64 {
			return uint64(time.Since(start) / time.Millisecond)
		},
	}
}

// WithWorkspaceBytes caps the RAM the database allocates at open. Open
// fails with errs.ErrWorkspaceTooSmall when the device geometry needs more
// than the cap; nothing is allocated after open succeeds.
func WithWorkspaceBytes(n uint32) Option {
	return options.NoError(func(c *config) {
		c.workspaceBytes = n
	})
}

// WithReadBatchRows sets the advisory iterator batch size. The iterator
// decodes one block (at most 74 rows) at a time regardless; the value is
// recorded for embedders that size their own read loops from it.
func WithReadBatchRows(n uint32) Option {
	return options.NoError(func(c *config) {
		if n == 0 {
			n = DefaultReadBatchRows
		}
		c.readBatchRows = n
	})
}

// WithCommitIntervalMS enables time-based commit: a write that arrives with
// an open block older than the interval publishes it first. Zero (the
// default) keeps commit purely size-driven.
func WithCommitIntervalMS(ms uint32) Option {
	return options.NoError(func(c *config) {
		c.commitIntervalMS = ms
	})
}

// WithNonBlockingGC makes Write return errs.ErrBusy instead of waiting when
// the GC erase quota for the current window is spent.
func WithNonBlockingGC() Option {
	return options.NoError(func(c *config) {
		c.nonBlockingGC = true
	})
}

// WithNow replaces the monotonic millisecond clock. The clock drives the GC
// quota window, the head-hint cadence, and the commit interval; it is never
// persisted. Tests use it to make quota behavior deterministic.
func WithNow(now func() uint64) Option {
	return options.NoError(func(c *config) {
		c.now = now
	})
}
