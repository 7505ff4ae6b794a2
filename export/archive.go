package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/stampdb/compress"
	"github.com/arloliu/stampdb/db"
	"github.com/arloliu/stampdb/internal/hash"
	"github.com/arloliu/stampdb/internal/pool"
)

// Archive layout, little-endian:
//
//	offset  size  field
//	0       4     magic 'SDA1'
//	4       1     compression type
//	5       2     series
//	7       1     reserved 0xFF
//	8       4     row count
//	12      8     xxHash64 of the uncompressed row payload
//	20      4     compressed payload length
//	24      ...   compressed payload: rowCount * (ts u32, value float32)
const (
	archiveMagic      = 0x53444131 // 'SDA1'
	archiveHeaderSize = 24
	archiveRowSize    = 8
)

var (
	// ErrArchiveFormat is returned when an archive header is malformed.
	ErrArchiveFormat = errors.New("export: malformed archive")
	// ErrArchiveDigest is returned when the payload digest does not match,
	// meaning the archive was corrupted in transit or at rest.
	ErrArchiveDigest = errors.New("export: archive digest mismatch")
)

// Row is one exported sample.
type Row struct {
	TsMS  uint32
	Value float32
}

// WriteArchive exports every row of series inside [t0MS, t1MS] as one
// compressed archive on w and returns the number of rows captured. The
// payload digest (xxHash64) covers the uncompressed rows, so readers detect
// corruption regardless of the codec.
func WriteArchive(w io.Writer, handle *db.DB, series uint16, t0MS, t1MS uint32, codecType compress.Type) (int, error) {
	codec, err := compress.GetCodec(codecType)
	if err != nil {
		return 0, err
	}

	buf := pool.Get()
	defer pool.Put(buf)

	it, err := handle.QueryBegin(series, t0MS, t1MS)
	if err != nil {
		return 0, err
	}
	defer it.End()

	rows := 0
	var scratch [archiveRowSize]byte
	for {
		ts, v, ok := it.Next()
		if !ok {
			break
		}
		binary.LittleEndian.PutUint32(scratch[0:], ts)
		binary.LittleEndian.PutUint32(scratch[4:], math.Float32bits(v))
		_, _ = buf.Write(scratch[:])
		rows++
	}

	payload := buf.Bytes()
	digest := hash.Sum(payload)

	compressed, err := codec.Compress(payload)
	if err != nil {
		return 0, fmt.Errorf("export: compress payload: %w", err)
	}

	header := make([]byte, archiveHeaderSize)
	binary.LittleEndian.PutUint32(header[0:], archiveMagic)
	header[4] = byte(codecType)
	binary.LittleEndian.PutUint16(header[5:], series)
	header[7] = 0xFF
	binary.LittleEndian.PutUint32(header[8:], uint32(rows))
	binary.LittleEndian.PutUint64(header[12:], digest)
	binary.LittleEndian.PutUint32(header[20:], uint32(len(compressed)))

	if _, err := w.Write(header); err != nil {
		return 0, err
	}
	if _, err := w.Write(compressed); err != nil {
		return 0, err
	}

	return rows, nil
}

// ReadArchive parses an archive, verifies its digest, and returns the
// series identifier with the decoded rows.
func ReadArchive(r io.Reader) (uint16, []Row, error) {
	header := make([]byte, archiveHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrArchiveFormat, err)
	}

	if binary.LittleEndian.Uint32(header[0:]) != archiveMagic {
		return 0, nil, ErrArchiveFormat
	}

	codecType := compress.Type(header[4])
	series := binary.LittleEndian.Uint16(header[5:])
	rowCount := binary.LittleEndian.Uint32(header[8:])
	digest := binary.LittleEndian.Uint64(header[12:])
	compressedLen := binary.LittleEndian.Uint32(header[20:])

	codec, err := compress.GetCodec(codecType)
	if err != nil {
		return 0, nil, err
	}

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrArchiveFormat, err)
	}

	payload, err := codec.Decompress(compressed)
	if err != nil {
		return 0, nil, err
	}
	if uint32(len(payload)) != rowCount*archiveRowSize {
		return 0, nil, ErrArchiveFormat
	}
	if hash.Sum(payload) != digest {
		return 0, nil, ErrArchiveDigest
	}

	rows := make([]Row, rowCount)
	for i := range rows {
		off := i * archiveRowSize
		rows[i].TsMS = binary.LittleEndian.Uint32(payload[off:])
		rows[i].Value = math.Float32frombits(binary.LittleEndian.Uint32(payload[off+4:]))
	}

	return series, rows, nil
}
