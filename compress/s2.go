package compress

import "github.com/klauspost/compress/s2"

// S2Codec compresses with S2, the Snappy-compatible format tuned for
// throughput. The default choice for local archive dumps.
type S2Codec struct{}

var _ Codec = S2Codec{}

// Compress compresses data with S2.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress restores an S2 block.
func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
