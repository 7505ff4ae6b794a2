package compress

// ZstdCodec compresses with Zstandard, the densest of the built-in codecs
// and the right pick for cold archive storage.
//
// Two implementations exist behind the cgo_zstd build tag: the default
// pure-Go encoder (klauspost/compress/zstd) and a libzstd binding
// (valyala/gozstd) for hosts where the native library is worth the cgo
// dependency. Their outputs interoperate.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}
