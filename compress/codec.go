// Package compress provides the compression codecs used by stampdb export
// archives.
//
// Archives carry whole query results as one payload, so the codecs trade a
// little CPU for density: S2 for fast local dumps, LZ4 for streaming over
// slow links, Zstd for cold storage. The codec identifier is recorded in
// the archive header, so any reader can decompress regardless of the
// writer's choice.
package compress

import "fmt"

// Type identifies a compression codec in an archive header.
type Type uint8

const (
	TypeNone Type = 0x1 // no compression
	TypeZstd Type = 0x2 // Zstandard
	TypeS2   Type = 0x3 // S2 (Snappy-compatible)
	TypeLZ4  Type = 0x4 // LZ4 block format
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseType maps a user-facing codec name to its Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "none":
		return TypeNone, nil
	case "zstd":
		return TypeZstd, nil
	case "s2":
		return TypeS2, nil
	case "lz4":
		return TypeLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression codec: %q", name)
	}
}

// Compressor compresses a payload into a newly allocated slice.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload compressed by the matching Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Type]Codec{
	TypeNone: NoOpCodec{},
	TypeZstd: ZstdCodec{},
	TypeS2:   S2Codec{},
	TypeLZ4:  LZ4Codec{},
}

// GetCodec returns the built-in codec for t.
func GetCodec(t Type) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", t)
}
