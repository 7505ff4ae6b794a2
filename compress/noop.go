package compress

// NoOpCodec passes data through unchanged. Useful for benchmarking the rest
// of the export path and for payloads that are already dense.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// Compress returns data as-is. The result shares the input's memory.
func (NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data as-is. The result shares the input's memory.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
