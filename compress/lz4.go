package compress

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool reuses lz4.Compressor instances; they carry internal
// hash tables worth keeping warm.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Codec compresses with the LZ4 block format behind a 5-byte frame:
// one marker byte (raw or compressed) and the original length. The block
// format neither records the original size nor accepts incompressible
// input, so the frame carries both.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

const (
	lz4FrameRaw        = 0x00
	lz4FrameCompressed = 0x01
	lz4HeaderSize      = 5
)

var errLZ4BadFrame = errors.New("compress: malformed lz4 frame")

// Compress compresses data into a framed LZ4 block, storing it raw when
// compression would not shrink it.
func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(dst[1:], uint32(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[lz4HeaderSize:])
	if err != nil || n == 0 || n >= len(data) {
		// Incompressible: store raw.
		dst[0] = lz4FrameRaw
		copy(dst[lz4HeaderSize:], data)

		return dst[:lz4HeaderSize+len(data)], nil
	}

	dst[0] = lz4FrameCompressed

	return dst[:lz4HeaderSize+n], nil
}

// Decompress restores a framed LZ4 block.
func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < lz4HeaderSize {
		return nil, errLZ4BadFrame
	}

	origLen := binary.LittleEndian.Uint32(data[1:])
	body := data[lz4HeaderSize:]

	switch data[0] {
	case lz4FrameRaw:
		if uint32(len(body)) != origLen {
			return nil, errLZ4BadFrame
		}
		out := make([]byte, origLen)
		copy(out, body)

		return out, nil
	case lz4FrameCompressed:
		out := make([]byte, origLen)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != origLen {
			return nil, errLZ4BadFrame
		}

		return out, nil
	default:
		return nil, errLZ4BadFrame
	}
}
