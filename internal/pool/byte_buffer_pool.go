// Package pool provides a small byte-buffer pool for the export path, which
// assembles whole archive payloads before compressing them.
package pool

import "sync"

const (
	// defaultSize is the initial capacity of pooled buffers: large enough
	// for a full segment's worth of rows.
	defaultSize = 16 * 1024
	// maxThreshold caps what goes back into the pool so one oversized
	// export does not pin memory forever.
	maxThreshold = 1024 * 1024
)

// ByteBuffer is a reusable append buffer.
type ByteBuffer struct {
	B []byte
}

// Bytes returns the underlying slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Reset empties the buffer but keeps its capacity.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Len returns the current length.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Write appends data, growing as needed. It never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

var bufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{B: make([]byte, 0, defaultSize)}
	},
}

// Get retrieves an empty buffer from the pool.
func Get() *ByteBuffer {
	bb, _ := bufferPool.Get().(*ByteBuffer)
	return bb
}

// Put returns a buffer to the pool, discarding oversized ones.
func Put(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > maxThreshold {
		return
	}
	bb.Reset()
	bufferPool.Put(bb)
}
